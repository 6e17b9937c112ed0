package marionette

import (
	"math"
	"testing"
)

func drag(t *testing.T, ctx *ToolContext, tool Tool, points ...Vec2) {
	t.Helper()
	if err := tool.OnPointerDown(ctx, points[0].X, points[0].Y); err != nil {
		t.Fatal(err)
	}
	for _, pt := range points[1:] {
		if err := tool.OnPointerMove(ctx, pt.X, pt.Y); err != nil {
			t.Fatal(err)
		}
	}
	last := points[len(points)-1]
	if err := tool.OnPointerUp(ctx, last.X, last.Y); err != nil {
		t.Fatal(err)
	}
}

func newToolEditor(t *testing.T, w, h int) (*Editor, *ToolContext) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = w, h
	e := NewEditor(cfg, nil, nil)
	return e, &ToolContext{Editor: e}
}

func TestMoveLayerToolCommits(t *testing.T) {
	e, ctx := newToolEditor(t, 4, 4)
	p := e.Project()
	id := e.SelectedLayer()
	_ = p.SetPixel(id, 0, 0, red)

	tool := &MoveLayerTool{}
	_ = tool.OnPointerDown(ctx, .2, .2)
	_ = tool.OnPointerMove(ctx, 1.3, .4)
	_ = tool.OnPointerMove(ctx, 2.4, 1.1)
	l, _ := p.Layer(id)
	if l.OffsetX != 2 || l.OffsetY != 1 {
		t.Fatalf("offset during drag = %d,%d", l.OffsetX, l.OffsetY)
	}
	if got := mustPixel(t, p, id, 0, 0); got != red {
		t.Fatal("pixels changed before release")
	}
	_ = tool.OnPointerUp(ctx, 2.4, 1.1)

	if l.OffsetX != 0 || l.OffsetY != 0 {
		t.Error("offset not reset on release")
	}
	if got := mustPixel(t, p, id, 2, 1); got != red {
		t.Errorf("(2,1) = %v, want red", got)
	}
	if got := mustPixel(t, p, id, 0, 0); got != transparent {
		t.Errorf("(0,0) = %v, want transparent", got)
	}
	if e.History().UndoLen() != 1 {
		t.Fatalf("undo len = %d, want 1", e.History().UndoLen())
	}
	_, _ = e.Undo()
	if got := mustPixel(t, p, id, 0, 0); got != red {
		t.Error("undo did not restore the pixels")
	}
}

func TestMoveLayerToolNoMovement(t *testing.T) {
	e, ctx := newToolEditor(t, 4, 4)
	drag(t, ctx, &MoveLayerTool{}, Vec2{1, 1}, Vec2{1.3, 1.2})
	if e.History().CanUndo() {
		t.Error("a drag under half a pixel recorded a step")
	}
}

func TestMoveLayerToolCancel(t *testing.T) {
	e, ctx := newToolEditor(t, 4, 4)
	p := e.Project()
	id := e.SelectedLayer()
	_ = p.SetPixel(id, 1, 1, green)

	tool := &MoveLayerTool{}
	_ = tool.OnPointerDown(ctx, 0, 0)
	_ = tool.OnPointerMove(ctx, 2, 2)
	if err := tool.Cancel(ctx); err != nil {
		t.Fatal(err)
	}
	_ = tool.OnPointerUp(ctx, 2, 2)

	l, _ := p.Layer(id)
	if l.OffsetX != 0 || l.OffsetY != 0 || e.History().CanUndo() {
		t.Errorf("cancel left offset %d,%d and %d steps", l.OffsetX, l.OffsetY, e.History().UndoLen())
	}
	if got := mustPixel(t, p, id, 1, 1); got != green {
		t.Error("cancel moved pixels")
	}
}

func TestMoveLayerToolFolder(t *testing.T) {
	e, ctx := newToolEditor(t, 3, 3)
	p := e.Project()
	outside := e.SelectedLayer()
	folder, _ := p.AddFolder(NoID)
	a, _ := p.AddLayer(folder.ID)
	sub, _ := p.AddFolder(a.ID)
	b, _ := p.AddLayer(sub.ID)
	for _, id := range []ID{outside, a.ID, b.ID} {
		_ = p.SetPixel(id, 0, 0, blue)
	}
	_ = e.SelectLayer(folder.ID)

	drag(t, ctx, &MoveLayerTool{}, Vec2{0, 0}, Vec2{0, 2})

	for _, id := range []ID{a.ID, b.ID} {
		if got := mustPixel(t, p, id, 0, 2); got != blue {
			t.Errorf("layer %d not shifted", id)
		}
	}
	if got := mustPixel(t, p, outside, 0, 0); got != blue {
		t.Error("layer outside the folder moved")
	}
	if e.History().UndoLen() != 1 {
		t.Errorf("undo len = %d, want 1", e.History().UndoLen())
	}
	_, _ = e.Undo()
	if got := mustPixel(t, p, b.ID, 0, 0); got != blue {
		t.Error("undo did not restore the nested layer")
	}
}

// newBoneToolEditor has one bone from (0,0) to (10,0), selected, with the
// cursor on frame 0 of an empty timeline.
func newBoneToolEditor(t *testing.T) (*Editor, *ToolContext, ID) {
	t.Helper()
	e, ctx := newToolEditor(t, 16, 16)
	p := e.Project()
	b, err := p.AddBone(RootBoneID)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetBoneVector(b.ID, &Vec2{0, 0}, 0, 10); err != nil {
		t.Fatal(err)
	}
	_ = e.SelectBone(b.ID)
	return e, ctx, b.ID
}

func TestRotateBoneTool(t *testing.T) {
	e, ctx, bone := newBoneToolEditor(t)
	p := e.Project()
	anim := e.SelectedAnimation()

	drag(t, ctx, &RotateBoneTool{}, Vec2{10, 0}, Vec2{7, 7}, Vec2{0, 10})

	tr, err := p.FrameBoneTransform(anim, 0, bone)
	if err != nil {
		t.Fatal(err)
	}
	assertNear(t, "rotate", tr.Rotate, math.Pi/2)
	if e.History().UndoLen() != 1 {
		t.Errorf("undo len = %d, want one step per drag", e.History().UndoLen())
	}

	// The next drag starts a new step.
	drag(t, ctx, &RotateBoneTool{}, Vec2{0, 10}, Vec2{-10, 0})
	if e.History().UndoLen() != 2 {
		t.Errorf("undo len = %d, want 2", e.History().UndoLen())
	}
	tr, _ = p.FrameBoneTransform(anim, 0, bone)
	assertNear(t, "rotate", tr.Rotate, math.Pi)

	_, _ = e.Undo()
	_, _ = e.Undo()
	if p.HasKeyframe(anim, 0) {
		t.Error("undo should remove the keyframe the drag created")
	}
}

func TestMoveBoneTool(t *testing.T) {
	e, ctx, bone := newBoneToolEditor(t)
	ctx.SnapToPixel = true
	p := e.Project()
	anim := e.SelectedAnimation()
	e.SetCurrentFrame(3)

	// The grab point sits (1.5,1.5) from the pivot after snapping.
	drag(t, ctx, &MoveBoneTool{}, Vec2{1.2, 1.7}, Vec2{2.9, 2.2}, Vec2{4.9, 5.1})

	tr, err := p.FrameBoneTransform(anim, 3, bone)
	if err != nil {
		t.Fatal(err)
	}
	assertNear(t, "tx", tr.TranslateX, 3)
	assertNear(t, "ty", tr.TranslateY, 4)
	if e.History().UndoLen() != 1 {
		t.Errorf("undo len = %d, want 1", e.History().UndoLen())
	}
	seg, _ := p.FrameBoneWorldVec(anim, 3, bone, nil)
	assertVec(t, "pivot", seg[0], Vec2{3, 4})
}

func TestMoveBoneToolUnderRotatedParent(t *testing.T) {
	e, ctx, parent := newBoneToolEditor(t)
	p := e.Project()
	anim := e.SelectedAnimation()
	child, _ := p.AddBone(parent)
	_ = p.SetBoneVector(child.ID, &Vec2{10, 0}, 0, 5)
	_ = p.SetKeyframeBoneTransform(anim, 0, parent, BoneTransform{Rotate: math.Pi / 2})
	_ = e.SelectBone(child.ID)

	// The child's pivot is posed at (0,10). Dragging it to (0,12) moves it
	// two units along the parent's local x axis.
	drag(t, ctx, &MoveBoneTool{}, Vec2{0, 10}, Vec2{0, 12})
	tr, _ := p.FrameBoneTransform(anim, 0, child.ID)
	assertNear(t, "tx", tr.TranslateX, 2)
	assertNear(t, "ty", tr.TranslateY, 0)
}

func TestBoneToolsIgnoreUnusableSelection(t *testing.T) {
	e, ctx := newToolEditor(t, 4, 4)
	b, _ := e.Project().AddBone(RootBoneID) // no pivot yet
	for _, sel := range []ID{NoID, RootBoneID, b.ID} {
		_ = e.SelectBone(sel)
		drag(t, ctx, &RotateBoneTool{}, Vec2{1, 0}, Vec2{0, 1})
		drag(t, ctx, &MoveBoneTool{}, Vec2{1, 0}, Vec2{0, 1})
	}
	if e.History().CanUndo() {
		t.Error("tools recorded without a usable bone")
	}
}
