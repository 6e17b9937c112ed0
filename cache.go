package marionette

import "fmt"

// TextureCache mirrors one pixel buffer as a renderer texture. It starts
// expired and is refreshed lazily with SetData.
type TextureCache struct {
	r       Renderer
	handle  Handle
	width   int
	height  int
	expired bool
}

// NewTextureCache returns an expired, unpopulated cache.
func NewTextureCache(r Renderer) *TextureCache {
	return &TextureCache{r: r, expired: true}
}

// ShouldSetData reports whether the texture is missing or stale.
func (c *TextureCache) ShouldSetData() bool { return c.expired || c.handle == 0 }

// Expired reports whether SetExpired(true) was called since the last
// SetData.
func (c *TextureCache) Expired() bool { return c.expired }

// SetExpired marks the texture stale (or fresh).
func (c *TextureCache) SetExpired(expired bool) { c.expired = expired }

// SetData uploads pixels, reusing the texture when the size is unchanged.
func (c *TextureCache) SetData(pixels []byte, width, height int) error {
	if c.r == nil {
		return fmt.Errorf("marionette: texture cache without renderer: %w", ErrInvalidState)
	}
	if len(pixels) != width*height*4 {
		return fmt.Errorf("marionette: texture data %d bytes for %dx%d: %w", len(pixels), width, height, ErrInvalidState)
	}
	if c.handle != 0 && c.width == width && c.height == height {
		if err := c.r.UpdateTexture(c.handle, pixels); err != nil {
			return err
		}
		c.expired = false
		return nil
	}
	h, err := c.r.CreateTexture(pixels, width)
	if err != nil {
		return err
	}
	if c.handle != 0 {
		c.r.DeleteTexture(c.handle)
	}
	c.handle, c.width, c.height = h, width, height
	c.expired = false
	return nil
}

// Texture returns the cached texture. It fails with ErrInvalidState before
// the first SetData.
func (c *TextureCache) Texture() (Handle, error) {
	if c.handle == 0 {
		return 0, fmt.Errorf("marionette: texture not populated: %w", ErrInvalidState)
	}
	return c.handle, nil
}

// Size returns the dimensions of the cached texture.
func (c *TextureCache) Size() (width, height int) { return c.width, c.height }

// Dispose releases the texture. The cache can be repopulated afterwards.
func (c *TextureCache) Dispose() {
	if c.handle != 0 && c.r != nil {
		c.r.DeleteTexture(c.handle)
	}
	c.handle, c.width, c.height = 0, 0, 0
	c.expired = true
}

// SurfaceCache holds the composited output of a folder.
type SurfaceCache struct {
	r       Renderer
	handle  Handle
	width   int
	height  int
	expired bool
}

// NewSurfaceCache returns an expired, unpopulated cache.
func NewSurfaceCache(r Renderer) *SurfaceCache {
	return &SurfaceCache{r: r, expired: true}
}

// ShouldReRender reports whether the surface is missing or stale.
func (c *SurfaceCache) ShouldReRender() bool { return c.expired || c.handle == 0 }

// Expired reports whether SetExpired(true) was called since the last
// render.
func (c *SurfaceCache) Expired() bool { return c.expired }

// SetExpired marks the surface stale (or fresh).
func (c *SurfaceCache) SetExpired(expired bool) { c.expired = expired }

// Surface returns a surface of the given size, recreating it when the size
// changed. The caller renders into it and then calls SetExpired(false).
func (c *SurfaceCache) Surface(width, height int) (Handle, error) {
	if c.r == nil {
		return 0, fmt.Errorf("marionette: surface cache without renderer: %w", ErrInvalidState)
	}
	if c.handle != 0 && c.width == width && c.height == height {
		return c.handle, nil
	}
	h, err := c.r.CreateSurface(width, height)
	if err != nil {
		return 0, err
	}
	if c.handle != 0 {
		c.r.DeleteSurface(c.handle)
	}
	c.handle, c.width, c.height = h, width, height
	return h, nil
}

// Texture returns the rendered surface for drawing. It fails with
// ErrInvalidState before the first Surface call.
func (c *SurfaceCache) Texture() (Handle, error) {
	if c.handle == 0 {
		return 0, fmt.Errorf("marionette: surface not rendered: %w", ErrInvalidState)
	}
	return c.handle, nil
}

// Dispose releases the surface.
func (c *SurfaceCache) Dispose() {
	if c.handle != 0 && c.r != nil {
		c.r.DeleteSurface(c.handle)
	}
	c.handle, c.width, c.height = 0, 0, 0
	c.expired = true
}
