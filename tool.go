package marionette

import (
	"math"
)

// ToolContext is what a pointer tool operates on. Coordinates passed to
// tools are in document space, y down.
type ToolContext struct {
	Editor *Editor
	// SnapToPixel moves pointer positions to pixel centers.
	SnapToPixel bool
}

func (c *ToolContext) snap(x, y float64) (float64, float64) {
	if !c.SnapToPixel {
		return x, y
	}
	return math.Floor(x) + .5, math.Floor(y) + .5
}

// Tool handles one pointer drag. Tools record their result through the
// editor's commands, so a drag is undone in one step.
type Tool interface {
	OnPointerDown(ctx *ToolContext, x, y float64) error
	OnPointerMove(ctx *ToolContext, x, y float64) error
	OnPointerUp(ctx *ToolContext, x, y float64) error
}

// Canceler is implemented by tools whose drag can be abandoned without
// recording anything.
type Canceler interface {
	Cancel(ctx *ToolContext) error
}

// MoveLayerTool drags the selected layer or folder. While dragging only the
// transient offset changes; on release the pixels of every raster layer in
// the subtree are shifted and committed as one undo step.
type MoveLayerTool struct {
	layer          ID
	startX, startY float64
}

var (
	_ Tool     = (*MoveLayerTool)(nil)
	_ Canceler = (*MoveLayerTool)(nil)
)

func (t *MoveLayerTool) OnPointerDown(ctx *ToolContext, x, y float64) error {
	t.layer = ctx.Editor.SelectedLayer()
	t.startX, t.startY = x, y
	return nil
}

func (t *MoveLayerTool) OnPointerMove(ctx *ToolContext, x, y float64) error {
	if t.layer == NoID {
		return nil
	}
	dx := int(math.Round(x - t.startX))
	dy := int(math.Round(y - t.startY))
	return ctx.Editor.Project().SetLayerOffset(t.layer, dx, dy)
}

func (t *MoveLayerTool) OnPointerUp(ctx *ToolContext, x, y float64) error {
	if t.layer == NoID {
		return nil
	}
	p := ctx.Editor.Project()
	l, err := p.Layer(t.layer)
	if err != nil {
		return err
	}
	dx, dy := l.OffsetX, l.OffsetY
	t.layer = NoID
	if err := p.SetLayerOffset(l.ID, 0, 0); err != nil {
		return err
	}
	if dx == 0 && dy == 0 {
		return nil
	}

	mods := make(map[ID][]byte)
	var walkErr error
	collect := func(r *Layer) {
		if walkErr != nil || r.IsFolder() {
			return
		}
		pix, err := p.ShiftedLayerPixels(r.ID, dx, dy)
		if err != nil {
			walkErr = err
			return
		}
		mods[r.ID] = pix
	}
	collect(l)
	if l.IsFolder() {
		p.walkLayers(l.children, 0, func(r *Layer, _ int) bool {
			collect(r)
			return true
		})
	}
	if walkErr != nil {
		return walkErr
	}
	if len(mods) == 0 {
		return nil
	}
	return ctx.Editor.ApplyLayerPixelModifications(mods)
}

// Cancel drops the drag and resets the offset.
func (t *MoveLayerTool) Cancel(ctx *ToolContext) error {
	if t.layer == NoID {
		return nil
	}
	id := t.layer
	t.layer = NoID
	return ctx.Editor.Project().SetLayerOffset(id, 0, 0)
}

// boneDrag is the target of an animate-workspace drag.
type boneDrag struct {
	active    bool
	animation ID
	frame     int
	bone      ID
}

func (d *boneDrag) begin(e *Editor) (*Bone, bool) {
	d.active = false
	b, err := e.Project().Bone(e.SelectedBone())
	if err != nil || b.IsRoot() || b.Pivot == nil {
		return nil, false
	}
	if _, err := e.Project().Animation(e.SelectedAnimation()); err != nil {
		return nil, false
	}
	*d = boneDrag{active: true, animation: e.SelectedAnimation(), frame: e.CurrentFrame(), bone: b.ID}
	return b, true
}

func (d *boneDrag) end(e *Editor) {
	if d.active {
		e.EndKeyframeTransform(d.animation, d.frame, d.bone)
	}
	d.active = false
}

// RotateBoneTool rotates the selected bone around its posed pivot at the
// current frame. A drag is coalesced into one undo step.
type RotateBoneTool struct {
	drag      boneDrag
	last      Vec2
	center    Vec2
	transform BoneTransform
}

var _ Tool = (*RotateBoneTool)(nil)

func (t *RotateBoneTool) OnPointerDown(ctx *ToolContext, x, y float64) error {
	t.last = Vec2{x, y}
	if _, ok := t.drag.begin(ctx.Editor); !ok {
		return nil
	}
	p := ctx.Editor.Project()
	tr, err := p.FrameBoneTransform(t.drag.animation, t.drag.frame, t.drag.bone)
	if err != nil {
		return err
	}
	seg, err := p.FrameBoneWorldVec(t.drag.animation, t.drag.frame, t.drag.bone, nil)
	if err != nil {
		return err
	}
	t.transform = tr
	t.center = seg[0]
	return nil
}

func (t *RotateBoneTool) OnPointerMove(ctx *ToolContext, x, y float64) error {
	if !t.drag.active {
		return nil
	}
	v0 := t.last.Sub(t.center)
	v1 := Vec2{x, y}.Sub(t.center)
	angle := math.Atan2(v0.X*v1.Y-v0.Y*v1.X, v0.X*v1.X+v0.Y*v1.Y)
	rotate := math.Mod(t.transform.Rotate+angle, 2*math.Pi)

	next := BoneTransform{TranslateX: t.transform.TranslateX, TranslateY: t.transform.TranslateY, Rotate: rotate}
	if err := ctx.Editor.SetKeyframeTransform(t.drag.animation, t.drag.frame, t.drag.bone, next); err != nil {
		return err
	}
	t.last = Vec2{x, y}
	t.transform = next
	return nil
}

func (t *RotateBoneTool) OnPointerUp(ctx *ToolContext, x, y float64) error {
	t.drag.end(ctx.Editor)
	return nil
}

// MoveBoneTool translates the selected bone at the current frame so its
// posed pivot follows the pointer, keeping the grab offset. A drag is
// coalesced into one undo step.
type MoveBoneTool struct {
	drag boneDrag
	det  Vec2
}

var _ Tool = (*MoveBoneTool)(nil)

func (t *MoveBoneTool) OnPointerDown(ctx *ToolContext, x, y float64) error {
	if _, ok := t.drag.begin(ctx.Editor); !ok {
		return nil
	}
	x, y = ctx.snap(x, y)
	seg, err := ctx.Editor.Project().FrameBoneWorldVec(t.drag.animation, t.drag.frame, t.drag.bone, nil)
	if err != nil {
		return err
	}
	t.det = Vec2{x, y}.Sub(seg[0])
	return nil
}

func (t *MoveBoneTool) OnPointerMove(ctx *ToolContext, x, y float64) error {
	if !t.drag.active {
		return nil
	}
	x, y = ctx.snap(x, y)
	p := ctx.Editor.Project()
	b, err := p.Bone(t.drag.bone)
	if err != nil {
		return err
	}
	tm, err := p.FrameBoneTransformMap(t.drag.animation, t.drag.frame)
	if err != nil {
		return err
	}
	parent, err := p.FrameBoneWorldTransform(t.drag.animation, t.drag.frame, b.parent, tm)
	if err != nil {
		return err
	}
	inv, _ := parent.Invert()
	local := inv.TransformPoint(Vec2{x, y}.Sub(t.det))

	next := BoneTransform{
		TranslateX: local.X - b.Pivot.X,
		TranslateY: local.Y - b.Pivot.Y,
		Rotate:     tm[b.ID].Rotate,
	}
	return ctx.Editor.SetKeyframeTransform(t.drag.animation, t.drag.frame, t.drag.bone, next)
}

func (t *MoveBoneTool) OnPointerUp(ctx *ToolContext, x, y float64) error {
	t.drag.end(ctx.Editor)
	return nil
}
