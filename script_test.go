package marionette

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestLoadScriptRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad json", `{"steps": [`},
		{"no steps", `{"steps": []}`},
		{"unknown action", `{"steps": [{"action": "jump"}]}`},
		{"unknown tool", `{"steps": [{"action": "tool", "tool": "lasso"}]}`},
		{"unknown workspace", `{"steps": [{"action": "workspace", "workspace": "sculpt"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadScript([]byte(tt.src)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNewTool(t *testing.T) {
	for _, name := range []string{ToolMoveLayer, ToolRotateBone, ToolMoveBone} {
		if tool, err := NewTool(name); err != nil || tool == nil {
			t.Errorf("NewTool(%q) = %v, %v", name, tool, err)
		}
	}
	if _, err := NewTool("brush"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown tool err = %v", err)
	}
}

func TestScriptDragSpreadsOverSteps(t *testing.T) {
	e, ctx, bone := newBoneToolEditor(t)
	anim := e.SelectedAnimation()
	src := fmt.Sprintf(`{"steps": [
		{"action": "select-bone", "id": %d},
		{"action": "tool", "tool": "rotate-bone"},
		{"action": "drag", "fromX": 10, "fromY": 0, "toX": 0, "toY": 10, "frames": 4},
		{"action": "undo"}
	]}`, bone)
	r, err := LoadScript([]byte(src))
	if err != nil {
		t.Fatal(err)
	}

	// select, tool, down (plus queued moves), 3 moves, up.
	for i := 0; i < 7; i++ {
		if r.Done() {
			t.Fatalf("done after %d steps", i)
		}
		if err := r.Step(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if _, ok := r.Tool().(*RotateBoneTool); !ok {
		t.Errorf("tool = %T", r.Tool())
	}
	tr, _ := e.Project().FrameBoneTransform(anim, 0, bone)
	assertNear(t, "rotate", tr.Rotate, math.Pi/2)
	if e.History().UndoLen() != 1 {
		t.Errorf("undo len = %d, want 1", e.History().UndoLen())
	}

	if err := r.Step(ctx); err != nil {
		t.Fatal(err)
	}
	if !r.Done() || e.History().CanUndo() {
		t.Errorf("done %v, undo len %d", r.Done(), e.History().UndoLen())
	}
	if err := r.Step(ctx); err != nil {
		t.Error("stepping a finished script should be a no-op")
	}
}

func TestScriptWaitAndFrame(t *testing.T) {
	e, ctx := newToolEditor(t, 4, 4)
	r, err := LoadScript([]byte(`{"steps": [
		{"action": "wait", "frames": 3},
		{"action": "frame", "frame": 5},
		{"action": "workspace", "workspace": "animate"}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		_ = r.Step(ctx)
		if e.CurrentFrame() != 0 {
			t.Fatalf("frame moved during wait at step %d", i)
		}
	}
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if e.CurrentFrame() != 5 || e.Workspace() != WorkspaceAnimate {
		t.Errorf("frame %d workspace %v", e.CurrentFrame(), e.Workspace())
	}
}

func TestScriptToolSwitchCancels(t *testing.T) {
	e, ctx := newToolEditor(t, 4, 4)
	p := e.Project()
	id := e.SelectedLayer()
	_ = p.SetPixel(id, 0, 0, red)
	r, err := LoadScript([]byte(`{"steps": [
		{"action": "tool", "tool": "move-layer"},
		{"action": "down", "x": 0, "y": 0},
		{"action": "move", "x": 2, "y": 2},
		{"action": "tool", "tool": "move-bone"},
		{"action": "up", "x": 2, "y": 2}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	l, _ := p.Layer(id)
	if l.OffsetX != 0 || l.OffsetY != 0 || e.History().CanUndo() {
		t.Errorf("offset %d,%d, undo len %d", l.OffsetX, l.OffsetY, e.History().UndoLen())
	}
	if got := mustPixel(t, p, id, 0, 0); got != red {
		t.Error("abandoned drag moved pixels")
	}
}

func TestScriptPointerWithoutTool(t *testing.T) {
	_, ctx := newToolEditor(t, 4, 4)
	r, err := LoadScript([]byte(`{"steps": [{"action": "down", "x": 1, "y": 1}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Run(ctx); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v", err)
	}
}

func TestScriptSelectMissing(t *testing.T) {
	_, ctx := newToolEditor(t, 4, 4)
	r, _ := LoadScript([]byte(`{"steps": [{"action": "select-layer", "id": 404}]}`))
	if err := r.Run(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}
