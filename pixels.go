package marionette

import (
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/draw"
)

// Pixel buffers are straight-alpha RGBA, row-major, width*height*4 bytes.
// They are wrapped in *image.RGBA only as a byte container for the image
// libraries below: every operation used is a plain byte copy, so no
// premultiplication is applied.

func rgbaView(pix []byte, w, h int) *image.RGBA {
	return &image.RGBA{Pix: pix, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
}

// LayerPixels returns the raster layer's pixel buffer.
// The returned slice MUST NOT be mutated; use SetLayerPixels.
func (p *Project) LayerPixels(id ID) ([]byte, error) {
	l, err := p.Layer(id)
	if err != nil {
		return nil, err
	}
	if l.IsFolder() {
		return nil, fmt.Errorf("marionette: layer %d is a folder: %w", id, ErrInvalidState)
	}
	pix, ok := p.pixels[id]
	if !ok {
		return nil, fmt.Errorf("marionette: pixels of layer %d: %w", id, ErrNotFound)
	}
	return pix, nil
}

// LayerPixelsCopy returns a copy of the raster layer's pixel buffer.
func (p *Project) LayerPixelsCopy(id ID) ([]byte, error) {
	pix, err := p.LayerPixels(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(pix), nil
}

// SetLayerPixels replaces the layer's pixel buffer with a copy of data.
// data must be exactly width*height*4 bytes.
func (p *Project) SetLayerPixels(id ID, data []byte) error {
	if _, err := p.LayerPixels(id); err != nil {
		return err
	}
	if len(data) != p.width*p.height*4 {
		return fmt.Errorf("marionette: pixels of layer %d: got %d bytes, want %d: %w",
			id, len(data), p.width*p.height*4, ErrInvalidState)
	}
	p.pixels[id] = slices.Clone(data)
	p.MarkLayerAsShouldReRender(id)
	return nil
}

func (p *Project) pixelIndex(x, y int) (int, error) {
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return 0, fmt.Errorf("marionette: pixel (%d, %d) outside %dx%d: %w", x, y, p.width, p.height, ErrOutOfRange)
	}
	return (y*p.width + x) * 4, nil
}

// Pixel returns the RGBA value at (x, y) of a raster layer.
func (p *Project) Pixel(id ID, x, y int) ([4]byte, error) {
	pix, err := p.LayerPixels(id)
	if err != nil {
		return [4]byte{}, err
	}
	i, err := p.pixelIndex(x, y)
	if err != nil {
		return [4]byte{}, err
	}
	return [4]byte(pix[i : i+4]), nil
}

// SetPixel writes one RGBA value at (x, y) of a raster layer.
func (p *Project) SetPixel(id ID, x, y int, rgba [4]byte) error {
	pix, err := p.LayerPixels(id)
	if err != nil {
		return err
	}
	i, err := p.pixelIndex(x, y)
	if err != nil {
		return err
	}
	copy(pix[i:i+4], rgba[:])
	p.MarkLayerAsShouldReRender(id)
	return nil
}

func round8(v float64) byte {
	return byte(math.Max(0, math.Min(0xff, math.Floor(v+0.5))))
}

// MergeDownLayerPixels composites src over dst with straight-alpha
// source-over blending and writes the result into dst. src is left as is.
func (p *Project) MergeDownLayerPixels(src, dst ID) error {
	s, err := p.LayerPixels(src)
	if err != nil {
		return err
	}
	d, err := p.LayerPixels(dst)
	if err != nil {
		return err
	}
	for i := 0; i < len(d); i += 4 {
		srcA, dstA := float64(s[i+3]), float64(d[i+3])
		var srcMix float64
		if m := math.Max(srcA, dstA); m > 0 {
			srcMix = srcA / m
		}
		dstMix := 1 - srcMix
		d[i] = round8(float64(s[i])*srcMix + float64(d[i])*dstMix)
		d[i+1] = round8(float64(s[i+1])*srcMix + float64(d[i+1])*dstMix)
		d[i+2] = round8(float64(s[i+2])*srcMix + float64(d[i+2])*dstMix)
		d[i+3] = round8(srcA + dstA*(1-srcA/255))
	}
	p.MarkLayerAsShouldReRender(dst)
	return nil
}

// ShiftedLayerPixels returns a copy of the layer's pixels moved by (dx, dy).
// Pixels shifted off the canvas are dropped; uncovered pixels are
// transparent.
func (p *Project) ShiftedLayerPixels(id ID, dx, dy int) ([]byte, error) {
	pix, err := p.LayerPixels(id)
	if err != nil {
		return nil, err
	}
	out := rgbaView(make([]byte, len(pix)), p.width, p.height)
	src := rgbaView(pix, p.width, p.height)
	draw.Copy(out, image.Pt(dx, dy), src, src.Bounds(), draw.Src, nil)
	return out.Pix, nil
}

// ResizeCanvas reallocates every pixel buffer to width x height, copying the
// overlapping region anchored by align. All render caches are disposed.
func (p *Project) ResizeCanvas(width, height int, align Align) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("marionette: resize canvas to %dx%d: %w", width, height, ErrInvalidState)
	}
	dx, dy, ok := align.offset(p.width, p.height, width, height)
	if !ok {
		return fmt.Errorf("marionette: resize canvas: unknown align %v: %w", align, ErrInvalidState)
	}
	if width == p.width && height == p.height {
		return nil
	}
	for id, pix := range p.pixels {
		src := rgbaView(pix, p.width, p.height)
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Copy(dst, image.Pt(dx, dy), src, src.Bounds(), draw.Src, nil)
		p.pixels[id] = dst.Pix
	}
	p.width, p.height = width, height
	p.disposeAllRenderCaches()
	p.shouldReRender = true
	return nil
}

// FlipHorizontal mirrors every layer left to right.
func (p *Project) FlipHorizontal() {
	for id, pix := range p.pixels {
		p.pixels[id] = transform.FlipH(rgbaView(pix, p.width, p.height)).Pix
	}
	p.disposeAllRenderCaches()
	p.shouldReRender = true
}

// FlipVertical mirrors every layer top to bottom.
func (p *Project) FlipVertical() {
	for id, pix := range p.pixels {
		p.pixels[id] = transform.FlipV(rgbaView(pix, p.width, p.height)).Pix
	}
	p.disposeAllRenderCaches()
	p.shouldReRender = true
}

// Rotate180 turns every layer half a turn.
func (p *Project) Rotate180() {
	n := p.width * p.height
	for id, pix := range p.pixels {
		out := make([]byte, len(pix))
		for i := 0; i < n; i++ {
			copy(out[(n-1-i)*4:(n-i)*4], pix[i*4:i*4+4])
		}
		p.pixels[id] = out
	}
	p.disposeAllRenderCaches()
	p.shouldReRender = true
}

// Rotate90CW turns every layer a quarter turn clockwise and swaps the
// canvas width and height.
func (p *Project) Rotate90CW() {
	w, h := p.width, p.height
	p.remap(func(x, y int) int { return (x*h + (h - 1 - y)) * 4 })
	p.width, p.height = h, w
}

// Rotate90CCW turns every layer a quarter turn counter-clockwise and swaps
// the canvas width and height.
func (p *Project) Rotate90CCW() {
	w, h := p.width, p.height
	p.remap(func(x, y int) int { return ((w-1-x)*h + y) * 4 })
	p.width, p.height = h, w
}

// remap moves each pixel (x, y) of every buffer to the byte offset returned
// by dst.
func (p *Project) remap(dst func(x, y int) int) {
	w, h := p.width, p.height
	for id, pix := range p.pixels {
		out := make([]byte, len(pix))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				oi := (y*w + x) * 4
				ni := dst(x, y)
				copy(out[ni:ni+4], pix[oi:oi+4])
			}
		}
		p.pixels[id] = out
	}
	p.disposeAllRenderCaches()
	p.shouldReRender = true
}

// PixelSnapshot is a copy of every pixel buffer together with the canvas
// size it was taken at. Canvas-wide operations use it as their undo state.
type PixelSnapshot struct {
	Width, Height int
	Pixels        map[ID][]byte
}

// PixelSnapshot copies every pixel buffer.
func (p *Project) PixelSnapshot() PixelSnapshot {
	s := PixelSnapshot{Width: p.width, Height: p.height, Pixels: make(map[ID][]byte, len(p.pixels))}
	for id, pix := range p.pixels {
		s.Pixels[id] = slices.Clone(pix)
	}
	return s
}

// RestorePixels puts back the canvas size and the pixel buffers of s. Every
// live raster layer must be present in s.
func (p *Project) RestorePixels(s PixelSnapshot) error {
	size := s.Width * s.Height * 4
	for id := range p.pixels {
		pix, ok := s.Pixels[id]
		if !ok {
			return fmt.Errorf("marionette: restore pixels: layer %d missing from snapshot: %w", id, ErrInvalidState)
		}
		if len(pix) != size {
			return fmt.Errorf("marionette: restore pixels: layer %d has %d bytes, want %d: %w", id, len(pix), size, ErrInvalidState)
		}
	}
	for id := range p.pixels {
		p.pixels[id] = slices.Clone(s.Pixels[id])
	}
	p.width, p.height = s.Width, s.Height
	p.disposeAllRenderCaches()
	p.shouldReRender = true
	return nil
}
