package ebitenrender

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// unpremultiply converts premultiplied RGBA to straight alpha in place.
func unpremultiply(pixels []byte) {
	for i := 0; i+3 < len(pixels); i += 4 {
		a := pixels[i+3]
		if a == 0 || a == 255 {
			continue
		}
		pixels[i] = uint8(min(int(pixels[i])*255/int(a), 255))
		pixels[i+1] = uint8(min(int(pixels[i+1])*255/int(a), 255))
		pixels[i+2] = uint8(min(int(pixels[i+2])*255/int(a), 255))
	}
}

// ToNRGBA reads a premultiplied ebiten image into a straight-alpha image,
// e.g. to save a screenshot.
func ToNRGBA(img *ebiten.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	img.ReadPixels(out.Pix)
	unpremultiply(out.Pix)
	return out
}
