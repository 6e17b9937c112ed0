// Package ebitenrender draws marionette documents with [Ebitengine].
//
// Layer textures keep the straight-alpha bytes of the document's pixel
// store and are premultiplied by a Kage program at draw time. Folder
// surfaces are ordinary premultiplied render targets borrowed from a
// power-of-two pool.
//
//	r := ebitenrender.New()
//	p := marionette.New(marionette.DefaultConfig(), r)
//
//	func (g *Game) Draw(screen *ebiten.Image) {
//		g.r.SetScreen(screen)
//		_ = g.p.RenderLayers(marionette.NoID, nil)
//	}
//
// [Ebitengine]: https://ebitengine.org
package ebitenrender

import (
	"errors"
	"fmt"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/phanxgames/marionette"
)

// ErrUnknownHandle is returned for handles the renderer did not issue or has
// already deleted.
var ErrUnknownHandle = errors.New("ebitenrender: unknown handle")

type kind uint8

const (
	kindTexture kind = iota
	kindSurface
)

type entry struct {
	kind  kind
	img   *ebiten.Image
	base  *ebiten.Image // pooled backing image of a surface
	width int
}

// Renderer implements marionette.Renderer. It is not safe for concurrent
// use; call it from the Ebitengine game loop only.
type Renderer struct {
	entries  map[marionette.Handle]*entry
	next     marionette.Handle
	captures []marionette.Handle
	screen   *ebiten.Image
	pool     surfacePool

	op       ebiten.DrawImageOptions
	shaderOp ebiten.DrawRectShaderOptions
}

var _ marionette.Renderer = (*Renderer)(nil)

// New creates a renderer with no screen. Draws outside a capture are
// dropped until SetScreen is called.
func New() *Renderer {
	return &Renderer{entries: make(map[marionette.Handle]*entry)}
}

// SetScreen sets the image drawn to when no capture is open, usually the
// screen passed to ebiten.Game.Draw.
func (r *Renderer) SetScreen(screen *ebiten.Image) { r.screen = screen }

func (r *Renderer) issue(e *entry) marionette.Handle {
	r.next++
	r.entries[r.next] = e
	return r.next
}

func (r *Renderer) lookup(h marionette.Handle, k kind) (*entry, error) {
	e, ok := r.entries[h]
	if !ok || e.kind != k {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return e, nil
}

func checkPixels(pixels []byte, width int) (int, error) {
	if width <= 0 || len(pixels) == 0 || len(pixels)%(width*4) != 0 {
		return 0, fmt.Errorf("ebitenrender: %d bytes is not a whole number of %d-pixel rows", len(pixels), width)
	}
	return len(pixels) / (width * 4), nil
}

// CreateTexture uploads straight-alpha pixels unchanged.
func (r *Renderer) CreateTexture(pixels []byte, width int) (marionette.Handle, error) {
	height, err := checkPixels(pixels, width)
	if err != nil {
		return 0, err
	}
	img := ebiten.NewImage(width, height)
	img.WritePixels(pixels)
	return r.issue(&entry{kind: kindTexture, img: img, width: width}), nil
}

func (r *Renderer) UpdateTexture(h marionette.Handle, pixels []byte) error {
	e, err := r.lookup(h, kindTexture)
	if err != nil {
		return err
	}
	b := e.img.Bounds()
	if len(pixels) != b.Dx()*b.Dy()*4 {
		return fmt.Errorf("ebitenrender: update texture %d: got %d bytes, want %d", h, len(pixels), b.Dx()*b.Dy()*4)
	}
	e.img.WritePixels(pixels)
	return nil
}

func (r *Renderer) DeleteTexture(h marionette.Handle) {
	e, err := r.lookup(h, kindTexture)
	if err != nil {
		return
	}
	e.img.Deallocate()
	delete(r.entries, h)
}

// CreateSurface borrows a pooled image and exposes its top-left w×h region.
func (r *Renderer) CreateSurface(width, height int) (marionette.Handle, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("ebitenrender: invalid surface size %dx%d", width, height)
	}
	base := r.pool.Acquire(width, height)
	img := base.SubImage(image.Rect(0, 0, width, height)).(*ebiten.Image)
	return r.issue(&entry{kind: kindSurface, img: img, base: base, width: width}), nil
}

// DeleteSurface returns the surface's backing image to the pool.
func (r *Renderer) DeleteSurface(h marionette.Handle) {
	e, err := r.lookup(h, kindSurface)
	if err != nil {
		return
	}
	r.pool.Release(e.base)
	delete(r.entries, h)
}

func (r *Renderer) PushCapture(h marionette.Handle) error {
	if _, err := r.lookup(h, kindSurface); err != nil {
		return err
	}
	r.captures = append(r.captures, h)
	return nil
}

func (r *Renderer) PopCapture() error {
	if len(r.captures) == 0 {
		return errors.New("ebitenrender: pop capture: no capture open")
	}
	r.captures = r.captures[:len(r.captures)-1]
	return nil
}

func (r *Renderer) CaptureDepth() int { return len(r.captures) }

// target returns the current draw target, or nil when there is none.
func (r *Renderer) target() *ebiten.Image {
	if n := len(r.captures); n > 0 {
		if e, ok := r.entries[r.captures[n-1]]; ok {
			return e.img
		}
		return nil
	}
	return r.screen
}

func (r *Renderer) Clear() {
	if dst := r.target(); dst != nil {
		dst.Clear()
	}
}

// DrawTexture draws a texture or surface. Unknown handles are ignored.
func (r *Renderer) DrawTexture(h marionette.Handle, opts marionette.DrawOptions) {
	dst := r.target()
	e, ok := r.entries[h]
	if dst == nil || !ok {
		return
	}
	a := opts.Transform.Affine()
	c := opts.Color

	if opts.Shader == marionette.ShaderMultiplyAlpha {
		b := e.img.Bounds()
		r.shaderOp.GeoM.Reset()
		setAffine(&r.shaderOp.GeoM, a)
		r.shaderOp.ColorScale.Reset()
		r.shaderOp.ColorScale.Scale(float32(c.R), float32(c.G), float32(c.B), float32(c.A))
		r.shaderOp.Images[0] = e.img
		dst.DrawRectShader(b.Dx(), b.Dy(), ensureMultiplyAlphaShader(), &r.shaderOp)
		r.shaderOp.Images[0] = nil
		return
	}

	r.op.GeoM.Reset()
	setAffine(&r.op.GeoM, a)
	r.op.ColorScale.Reset()
	r.op.ColorScale.Scale(float32(c.R), float32(c.G), float32(c.B), float32(c.A))
	dst.DrawImage(e.img, &r.op)
}

func setAffine(g *ebiten.GeoM, a [6]float64) {
	g.SetElement(0, 0, a[0])
	g.SetElement(1, 0, a[1])
	g.SetElement(0, 1, a[2])
	g.SetElement(1, 1, a[3])
	g.SetElement(0, 2, a[4])
	g.SetElement(1, 2, a[5])
}

// ReadPixels returns straight-alpha RGBA. Surface contents are converted
// from premultiplied alpha.
func (r *Renderer) ReadPixels(h marionette.Handle) ([]byte, error) {
	e, ok := r.entries[h]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	b := e.img.Bounds()
	pixels := make([]byte, 4*b.Dx()*b.Dy())
	e.img.ReadPixels(pixels)
	if e.kind == kindSurface {
		unpremultiply(pixels)
	}
	return pixels, nil
}

// Len returns the number of live textures and surfaces.
func (r *Renderer) Len() int { return len(r.entries) }

// Dispose deallocates every texture and pooled surface.
func (r *Renderer) Dispose() {
	for h, e := range r.entries {
		if e.kind == kindTexture {
			e.img.Deallocate()
		} else {
			r.pool.Release(e.base)
		}
		delete(r.entries, h)
	}
	r.pool.Dispose()
	r.captures = r.captures[:0]
}
