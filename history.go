package marionette

import "fmt"

// DefaultHistoryLimit is the number of undo steps kept when a History is
// created with a non-positive limit.
const DefaultHistoryLimit = 200

// Action is one direction of an undoable change. Actions must capture ids,
// never entity pointers, and re-resolve through the project when run.
type Action func() error

// Navigator switches the UI to the workspace an undo step was recorded in.
type Navigator interface {
	Navigate(ws Workspace)
}

type record struct {
	workspace Workspace
	undo      Action
	redo      Action
	mergeKey  string
}

// History is a bounded pair of undo and redo stacks. Consecutive records
// sharing a non-empty merge key collapse into one step that undoes back to
// the state before the first of them.
//
// A History is not safe for concurrent use.
type History struct {
	limit     int
	nav       Navigator
	undoStack []record
	redoStack []record
	dirty     bool
}

// NewHistory creates an empty history keeping at most limit undo steps.
// nav may be nil.
func NewHistory(limit int, nav Navigator) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit, nav: nav}
}

// ApplyAndRecord runs do and, if it succeeds, records it with undo as its
// inverse. A failing do records nothing.
func (h *History) ApplyAndRecord(ws Workspace, do, undo Action, mergeKey string) error {
	if err := do(); err != nil {
		return err
	}
	h.Record(ws, do, undo, mergeKey)
	return nil
}

// Record pushes an already-applied change. When mergeKey is non-empty and
// equals the key of the top record, the top record is replaced and keeps
// its original undo action. The redo stack is always cleared.
func (h *History) Record(ws Workspace, redo, undo Action, mergeKey string) {
	if redo == nil || undo == nil {
		panic("marionette: history record with nil action")
	}
	h.dirty = true
	clear(h.redoStack)
	h.redoStack = h.redoStack[:0]

	if n := len(h.undoStack); mergeKey != "" && n > 0 && h.undoStack[n-1].mergeKey == mergeKey {
		top := &h.undoStack[n-1]
		top.workspace = ws
		top.redo = redo
		return
	}

	h.undoStack = append(h.undoStack, record{workspace: ws, undo: undo, redo: redo, mergeKey: mergeKey})
	if over := len(h.undoStack) - h.limit; over > 0 {
		copy(h.undoStack, h.undoStack[over:])
		clear(h.undoStack[len(h.undoStack)-over:])
		h.undoStack = h.undoStack[:len(h.undoStack)-over]
	}
}

// EndMerge stops further records from merging into the top record when it
// carries key.
func (h *History) EndMerge(key string) {
	if n := len(h.undoStack); n > 0 && h.undoStack[n-1].mergeKey == key {
		h.undoStack[n-1].mergeKey = ""
	}
}

// Undo reverts the most recent step. It reports false when there is nothing
// to undo. If the undo action fails the step stays on the undo stack.
func (h *History) Undo() (bool, error) {
	n := len(h.undoStack)
	if n == 0 {
		return false, nil
	}
	r := h.undoStack[n-1]
	r.mergeKey = ""
	if err := r.undo(); err != nil {
		return false, fmt.Errorf("marionette: undo: %w", err)
	}
	h.undoStack[n-1] = record{}
	h.undoStack = h.undoStack[:n-1]
	h.redoStack = append(h.redoStack, r)
	h.dirty = true
	h.navigate(r.workspace)
	return true, nil
}

// Redo reapplies the most recently undone step. It reports false when there
// is nothing to redo. If the redo action fails the step stays on the redo
// stack.
func (h *History) Redo() (bool, error) {
	n := len(h.redoStack)
	if n == 0 {
		return false, nil
	}
	r := h.redoStack[n-1]
	if err := r.redo(); err != nil {
		return false, fmt.Errorf("marionette: redo: %w", err)
	}
	h.redoStack[n-1] = record{}
	h.redoStack = h.redoStack[:n-1]
	h.undoStack = append(h.undoStack, r)
	h.dirty = true
	h.navigate(r.workspace)
	return true, nil
}

func (h *History) navigate(ws Workspace) {
	if h.nav != nil && ws != WorkspaceNone {
		h.nav.Navigate(ws)
	}
}

// Clear drops every step and resets the dirty flag.
func (h *History) Clear() {
	clear(h.undoStack)
	clear(h.redoStack)
	h.undoStack = h.undoStack[:0]
	h.redoStack = h.redoStack[:0]
	h.dirty = false
}

// CanUndo reports whether Undo has a step to revert.
func (h *History) CanUndo() bool { return len(h.undoStack) > 0 }

// CanRedo reports whether Redo has a step to reapply.
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }

// UndoLen returns the number of undo steps.
func (h *History) UndoLen() int { return len(h.undoStack) }

// RedoLen returns the number of redo steps.
func (h *History) RedoLen() int { return len(h.redoStack) }

// Limit returns the maximum number of undo steps kept.
func (h *History) Limit() int { return h.limit }

// Dirty reports whether anything was recorded, undone or redone since the
// last Clear or MarkClean.
func (h *History) Dirty() bool { return h.dirty }

// MarkClean resets the dirty flag, typically after a save.
func (h *History) MarkClean() { h.dirty = false }
