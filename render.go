package marionette

import (
	"fmt"
	"time"
)

// DrawHook lets a caller replace the draw of a single layer or folder during
// RenderLayers, e.g. to apply a bone transform. Returning true means the hook
// drew the texture itself; false falls back to the default draw at the
// layer's offset.
type DrawHook func(r Renderer, l *Layer, texture Handle, opts DrawOptions) bool

// PoseHook returns a DrawHook that draws every layer bound to a visible bone
// (see VisibleLayerBoneMap) with that bone's world transform at frame of
// animation. Other layers keep the default draw.
func (p *Project) PoseHook(animation ID, frame int) (DrawHook, error) {
	tm, err := p.FrameBoneTransformMap(animation, frame)
	if err != nil {
		return nil, err
	}
	bound := p.VisibleLayerBoneMap()
	world := make(map[ID]Mat33, len(bound))
	for layer, bone := range bound {
		world[layer] = p.boneWorldTransform(p.boneMap[bone], tm)
	}
	return func(r Renderer, l *Layer, texture Handle, opts DrawOptions) bool {
		m, ok := world[l.ID]
		if !ok {
			return false
		}
		opts.Transform = opts.Transform.Mul(m)
		r.DrawTexture(texture, opts)
		return true
	}, nil
}

// MarkLayerAsShouldReRender expires every cache of id and of each folder
// above it, and raises the document-wide re-render flag. Call it after any
// change to a layer's pixels, visibility, opacity, offset or child order.
func (p *Project) MarkLayerAsShouldReRender(id ID) {
	for cur := id; cur != NoID; {
		l, ok := p.layerMap[cur]
		if !ok {
			break
		}
		if c, ok := p.textures[cur]; ok {
			c.SetExpired(true)
		}
		if c, ok := p.surfaces[cur]; ok {
			c.SetExpired(true)
		}
		if c, ok := p.x3Textures[cur]; ok {
			c.SetExpired(true)
		}
		cur = l.parent
	}
	p.shouldReRender = true
}

// ShouldReRender reports whether anything visible changed since the last
// ConsumeReRender.
func (p *Project) ShouldReRender() bool { return p.shouldReRender }

// ConsumeReRender returns the re-render flag and clears it. Hosts call it
// once per frame to decide whether to redraw.
func (p *Project) ConsumeReRender() bool {
	v := p.shouldReRender
	p.shouldReRender = false
	return v
}

// RequestReRender raises the re-render flag without expiring any cache.
func (p *Project) RequestReRender() { p.shouldReRender = true }

// purgeCaches disposes and forgets every cache of id.
func (p *Project) purgeCaches(id ID) {
	if c, ok := p.textures[id]; ok {
		c.Dispose()
		delete(p.textures, id)
	}
	if c, ok := p.surfaces[id]; ok {
		c.Dispose()
		delete(p.surfaces, id)
	}
	if c, ok := p.x3Textures[id]; ok {
		c.Dispose()
		delete(p.x3Textures, id)
	}
}

// disposeAllRenderCaches releases every GPU resource the project holds and
// empties the cache maps.
func (p *Project) disposeAllRenderCaches() {
	for _, c := range p.textures {
		c.Dispose()
	}
	for _, c := range p.surfaces {
		c.Dispose()
	}
	for _, c := range p.x3Textures {
		c.Dispose()
	}
	clear(p.textures)
	clear(p.surfaces)
	clear(p.x3Textures)
}

func (p *Project) requireRenderer() error {
	if p.renderer == nil {
		return fmt.Errorf("marionette: project has no renderer: %w", ErrInvalidState)
	}
	return nil
}

// RenderLayers draws the children of container (NoID for the document)
// into the renderer's current target, back to front. Hidden entries are
// skipped. Folders are composited into their cached surface first, which is
// only re-rendered when stale. hook may be nil.
func (p *Project) RenderLayers(container ID, hook DrawHook) error {
	if err := p.requireRenderer(); err != nil {
		return err
	}
	ids := p.layers
	if container != NoID {
		l, err := p.Layer(container)
		if err != nil {
			return err
		}
		if !l.IsFolder() {
			return fmt.Errorf("marionette: render layers of %d: not a folder: %w", container, ErrInvalidState)
		}
		ids = l.children
	}

	var start time.Time
	if p.debug && p.renderDepth == 0 {
		start = time.Now()
		p.stats = renderStats{}
	}
	p.renderDepth++
	err := p.renderLayers(ids, hook)
	p.renderDepth--
	if p.debug && p.renderDepth == 0 {
		p.stats.elapsed = time.Since(start)
		p.debugLog(p.stats)
	}
	return err
}

func (p *Project) renderLayers(ids []ID, hook DrawHook) error {
	for i := len(ids) - 1; i >= 0; i-- {
		l := p.layerMap[ids[i]]
		if !l.Visible {
			continue
		}
		alpha := float64(l.Opacity) / 100
		opts := DrawOptions{
			Transform: Translate33(float64(l.OffsetX), float64(l.OffsetY)),
			Color:     Color{R: alpha, G: alpha, B: alpha, A: alpha},
			Shader:    ShaderMultiplyAlpha,
		}
		if l.IsFolder() {
			opts.Shader = ShaderDefault
		}
		tex, err := p.layerTexture(l, hook)
		if err != nil {
			return err
		}
		p.stats.layersDrawn++
		if hook != nil && hook(p.renderer, l, tex, opts) {
			continue
		}
		p.renderer.DrawTexture(tex, opts)
	}
	return nil
}

// LayerTexture returns the up-to-date texture of a raster layer, or the
// composited surface of a folder.
func (p *Project) LayerTexture(id ID) (Handle, error) {
	if err := p.requireRenderer(); err != nil {
		return 0, err
	}
	l, err := p.Layer(id)
	if err != nil {
		return 0, err
	}
	return p.layerTexture(l, nil)
}

func (p *Project) layerTexture(l *Layer, hook DrawHook) (Handle, error) {
	if !l.IsFolder() {
		c, ok := p.textures[l.ID]
		if !ok {
			c = NewTextureCache(p.renderer)
			p.textures[l.ID] = c
		}
		if !c.ShouldSetData() {
			p.stats.cacheHits++
			return c.Texture()
		}
		if err := c.SetData(p.pixels[l.ID], p.width, p.height); err != nil {
			return 0, err
		}
		p.stats.cacheRebuilds++
		return c.Texture()
	}

	c, ok := p.surfaces[l.ID]
	if !ok {
		c = NewSurfaceCache(p.renderer)
		p.surfaces[l.ID] = c
	}
	if !c.ShouldReRender() {
		p.stats.cacheHits++
		return c.Texture()
	}
	h, err := c.Surface(p.width, p.height)
	if err != nil {
		return 0, err
	}
	if err := p.renderer.PushCapture(h); err != nil {
		return 0, err
	}
	p.renderer.Clear()
	rerr := p.renderLayers(l.children, hook)
	if err := p.renderer.PopCapture(); err != nil && rerr == nil {
		rerr = err
	}
	if rerr != nil {
		return 0, rerr
	}
	c.SetExpired(false)
	p.stats.cacheRebuilds++
	return h, nil
}

// X3LayerTexture returns a texture three times the canvas size holding an
// edge-interpolating upscale of the layer or folder output. The animate
// workspace samples it to keep rotated pixel art crisp.
func (p *Project) X3LayerTexture(id ID) (Handle, error) {
	if err := p.requireRenderer(); err != nil {
		return 0, err
	}
	l, err := p.Layer(id)
	if err != nil {
		return 0, err
	}
	c, ok := p.x3Textures[id]
	if !ok {
		c = NewTextureCache(p.renderer)
		p.x3Textures[id] = c
	}
	if !c.ShouldSetData() {
		return c.Texture()
	}

	var src []byte
	if l.IsFolder() {
		tex, err := p.layerTexture(l, nil)
		if err != nil {
			return 0, err
		}
		if src, err = p.renderer.ReadPixels(tex); err != nil {
			return 0, err
		}
	} else {
		src = p.pixels[id]
	}
	if err := c.SetData(Scale3x(src, p.width, p.height), p.width*3, p.height*3); err != nil {
		return 0, err
	}
	return c.Texture()
}

// PreRenderX3Textures warms the x3 cache of every layer and folder.
func (p *Project) PreRenderX3Textures() error {
	var err error
	p.WalkLayers(func(l *Layer, _ int) bool {
		if err != nil {
			return false
		}
		_, err = p.X3LayerTexture(l.ID)
		return err == nil
	})
	return err
}
