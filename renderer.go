package marionette

// Handle identifies a texture or surface owned by a Renderer. Zero is never
// a valid handle.
type Handle uint32

// Shader selects the fragment program used by DrawTexture.
type Shader uint8

const (
	// ShaderDefault draws texels multiplied by DrawOptions.Color. Folder
	// surfaces are already premultiplied and use it.
	ShaderDefault Shader = iota
	// ShaderMultiplyAlpha premultiplies straight-alpha texels before
	// applying DrawOptions.Color. Raster layer textures use it.
	ShaderMultiplyAlpha
)

// DrawOptions describes a single textured-quad draw.
type DrawOptions struct {
	// Transform maps texture pixel space to the current target.
	Transform Mat33
	// Color multiplies the sampled texel.
	Color  Color
	Shader Shader
}

// Renderer is the GPU boundary the project draws through. Textures mirror
// straight-alpha RGBA pixel buffers; surfaces are offscreen render targets
// that can also be drawn as textures.
//
// Draws go to the surface on top of the capture stack, or to the screen when
// the stack is empty. Implementations need not be safe for concurrent use.
type Renderer interface {
	// CreateTexture uploads pixels (width*height*4 bytes, straight alpha).
	CreateTexture(pixels []byte, width int) (Handle, error)
	UpdateTexture(h Handle, pixels []byte) error
	DeleteTexture(h Handle)

	CreateSurface(width, height int) (Handle, error)
	DeleteSurface(h Handle)

	// PushCapture redirects draws to the surface h until the matching
	// PopCapture.
	PushCapture(h Handle) error
	PopCapture() error
	// CaptureDepth returns the number of open captures.
	CaptureDepth() int

	// Clear fills the current target with transparent black.
	Clear()
	DrawTexture(h Handle, opts DrawOptions)

	// ReadPixels returns the straight-alpha RGBA contents of a texture or
	// surface.
	ReadPixels(h Handle) ([]byte, error)
}
