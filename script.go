package marionette

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Tool names accepted by NewTool and by the "tool" script action.
const (
	ToolMoveLayer  = "move-layer"
	ToolRotateBone = "rotate-bone"
	ToolMoveBone   = "move-bone"
)

// NewTool returns a fresh tool by name.
func NewTool(name string) (Tool, error) {
	switch name {
	case ToolMoveLayer:
		return &MoveLayerTool{}, nil
	case ToolRotateBone:
		return &RotateBoneTool{}, nil
	case ToolMoveBone:
		return &MoveBoneTool{}, nil
	}
	return nil, fmt.Errorf("marionette: unknown tool %q: %w", name, ErrNotFound)
}

// scriptStep is a single action of a tool script.
type scriptStep struct {
	Action string  `json:"action"`
	Tool   string  `json:"tool,omitempty"`
	Space  string  `json:"workspace,omitempty"`
	ID     ID      `json:"id,omitempty"`
	Frame  int     `json:"frame,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	FromX  float64 `json:"fromX,omitempty"`
	FromY  float64 `json:"fromY,omitempty"`
	ToX    float64 `json:"toX,omitempty"`
	ToY    float64 `json:"toY,omitempty"`
	Frames int     `json:"frames,omitempty"`
}

type script struct {
	Steps []scriptStep `json:"steps"`
}

type pointerPhase uint8

const (
	pointerDown pointerPhase = iota
	pointerMove
	pointerUp
)

type pointerEvent struct {
	phase pointerPhase
	x, y  float64
}

var scriptActions = map[string]bool{
	"tool": true, "down": true, "move": true, "up": true, "drag": true,
	"cancel": true, "wait": true, "undo": true, "redo": true, "frame": true,
	"select-layer": true, "select-bone": true, "select-animation": true,
	"workspace": true,
}

func parseWorkspace(name string) (Workspace, bool) {
	for _, ws := range []Workspace{WorkspacePaint, WorkspaceSkeleton, WorkspaceAnimate} {
		if ws.String() == name {
			return ws, true
		}
	}
	return WorkspaceNone, false
}

// ScriptRunner replays a JSON script of tool selections, pointer events and
// editor actions, one step per Step call. Drags are spread over several
// calls so merge windows behave as they do for a live pointer.
//
//	{"steps": [
//		{"action": "select-bone", "id": 3},
//		{"action": "tool", "tool": "rotate-bone"},
//		{"action": "drag", "fromX": 10, "fromY": 0, "toX": 0, "toY": 10, "frames": 4},
//		{"action": "undo"}
//	]}
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	queue     []pointerEvent
	tool      Tool
	done      bool
}

// LoadScript parses a tool script.
func LoadScript(jsonData []byte) (*ScriptRunner, error) {
	var s script
	if err := json.Unmarshal(jsonData, &s); err != nil {
		return nil, fmt.Errorf("marionette: parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, errors.New("marionette: parse script: no steps")
	}
	for i, st := range s.Steps {
		if !scriptActions[st.Action] {
			return nil, fmt.Errorf("marionette: parse script: step %d: unknown action %q", i, st.Action)
		}
		switch st.Action {
		case "tool":
			if _, err := NewTool(st.Tool); err != nil {
				return nil, fmt.Errorf("marionette: parse script: step %d: %w", i, err)
			}
		case "workspace":
			if _, ok := parseWorkspace(st.Space); !ok {
				return nil, fmt.Errorf("marionette: parse script: step %d: unknown workspace %q", i, st.Space)
			}
		}
	}
	return &ScriptRunner{steps: s.Steps}, nil
}

// Done reports whether every step has been executed.
func (r *ScriptRunner) Done() bool { return r.done }

// Tool returns the active tool, or nil.
func (r *ScriptRunner) Tool() Tool { return r.tool }

// Step advances the script by one frame.
func (r *ScriptRunner) Step(ctx *ToolContext) error {
	if r.done {
		return nil
	}
	if len(r.queue) > 0 {
		ev := r.queue[0]
		r.queue = r.queue[1:]
		err := r.dispatch(ctx, ev)
		r.checkDone()
		return err
	}
	if r.waitCount > 0 {
		r.waitCount--
		r.checkDone()
		return nil
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return nil
	}

	st := r.steps[r.cursor]
	r.cursor++
	err := r.exec(ctx, st)
	r.checkDone()
	if err != nil {
		return fmt.Errorf("marionette: script step %d (%s): %w", r.cursor-1, st.Action, err)
	}
	return nil
}

// Run steps until the script is done or a step fails.
func (r *ScriptRunner) Run(ctx *ToolContext) error {
	for !r.done {
		if err := r.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *ScriptRunner) checkDone() {
	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(r.queue) == 0 {
		r.done = true
	}
}

func (r *ScriptRunner) exec(ctx *ToolContext, st scriptStep) error {
	e := ctx.Editor
	switch st.Action {
	case "tool":
		if c, ok := r.tool.(Canceler); ok {
			if err := c.Cancel(ctx); err != nil {
				return err
			}
		}
		t, err := NewTool(st.Tool)
		if err != nil {
			return err
		}
		r.tool = t
	case "down":
		return r.dispatch(ctx, pointerEvent{pointerDown, st.X, st.Y})
	case "move":
		return r.dispatch(ctx, pointerEvent{pointerMove, st.X, st.Y})
	case "up":
		return r.dispatch(ctx, pointerEvent{pointerUp, st.X, st.Y})
	case "drag":
		frames := max(st.Frames, 2)
		if err := r.dispatch(ctx, pointerEvent{pointerDown, st.FromX, st.FromY}); err != nil {
			return err
		}
		for i := 1; i < frames; i++ {
			t := float64(i) / float64(frames-1)
			r.queue = append(r.queue, pointerEvent{
				phase: pointerMove,
				x:     st.FromX + (st.ToX-st.FromX)*t,
				y:     st.FromY + (st.ToY-st.FromY)*t,
			})
		}
		r.queue = append(r.queue, pointerEvent{pointerUp, st.ToX, st.ToY})
	case "cancel":
		if c, ok := r.tool.(Canceler); ok {
			return c.Cancel(ctx)
		}
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1
		}
	case "undo":
		_, err := e.Undo()
		return err
	case "redo":
		_, err := e.Redo()
		return err
	case "frame":
		e.SetCurrentFrame(st.Frame)
	case "select-layer":
		return e.SelectLayer(st.ID)
	case "select-bone":
		return e.SelectBone(st.ID)
	case "select-animation":
		return e.SelectAnimation(st.ID)
	case "workspace":
		ws, _ := parseWorkspace(st.Space)
		e.Navigate(ws)
	}
	return nil
}

func (r *ScriptRunner) dispatch(ctx *ToolContext, ev pointerEvent) error {
	if r.tool == nil {
		return fmt.Errorf("marionette: pointer event without a tool: %w", ErrInvalidState)
	}
	switch ev.phase {
	case pointerDown:
		return r.tool.OnPointerDown(ctx, ev.x, ev.y)
	case pointerMove:
		return r.tool.OnPointerMove(ctx, ev.x, ev.y)
	default:
		return r.tool.OnPointerUp(ctx, ev.x, ev.y)
	}
}
