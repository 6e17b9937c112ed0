package marionette

import (
	"errors"
	"strconv"
	"testing"
)

// layerTree returns the document's layer tree as nested id lists for
// compact comparisons: a folder is followed by its children in brackets.
func layerTree(p *Project) []any {
	var build func(ids []ID) []any
	build = func(ids []ID) []any {
		out := make([]any, 0, len(ids))
		for _, id := range ids {
			out = append(out, id)
			if l := p.layerMap[id]; l.IsFolder() {
				out = append(out, build(l.children))
			}
		}
		return out
	}
	return build(p.layers)
}

func assertTree(t *testing.T, p *Project, want string) {
	t.Helper()
	if got := sprintTree(layerTree(p)); got != want {
		t.Errorf("tree = %s, want %s", got, want)
	}
}

func sprintTree(items []any) string {
	s := "["
	for i, it := range items {
		if i > 0 {
			s += " "
		}
		switch v := it.(type) {
		case ID:
			s += strconv.Itoa(int(v))
		case []any:
			s += sprintTree(v)
		}
	}
	return s + "]"
}

func TestAddLayerAnchors(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	l1, _ := p.AddLayer(NoID)
	l2, _ := p.AddLayer(NoID)
	assertTree(t, p, "[2 1]")

	f3, _ := p.AddFolder(l1.ID) // above l1
	assertTree(t, p, "[2 3 [] 1]")

	l4, _ := p.AddLayer(f3.ID) // top of folder
	l5, _ := p.AddLayer(l4.ID) // above l4 inside the folder
	assertTree(t, p, "[2 3 [5 4] 1]")

	if l5.Parent() != f3.ID || l2.Parent() != NoID {
		t.Errorf("parents = %d, %d", l5.Parent(), l2.Parent())
	}
	if _, err := p.AddLayer(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing anchor err = %v", err)
	}
	if _, ok := p.pixels[f3.ID]; ok {
		t.Error("folders must not own a pixel buffer")
	}
}

func TestAddFolderMaxDepth(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	anchor := NoID
	for i := 0; i < MaxFolderDepth; i++ {
		f, err := p.AddFolder(anchor)
		if err != nil {
			t.Fatalf("folder %d: %v", i+1, err)
		}
		anchor = f.ID
	}
	if _, err := p.AddFolder(anchor); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState past depth %d", err, MaxFolderDepth)
	}
	// A raster layer still fits at the deepest level.
	if _, err := p.AddLayer(anchor); err != nil {
		t.Errorf("AddLayer at max depth: %v", err)
	}
}

func TestMoveAndDuplicateRespectMaxDepth(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	deepest := NoID
	for i := 0; i < MaxFolderDepth-1; i++ {
		f, err := p.AddFolder(deepest)
		if err != nil {
			t.Fatal(err)
		}
		deepest = f.ID
	}
	pair, _ := p.AddFolder(NoID)
	_, _ = p.AddFolder(pair.ID)
	single, _ := p.AddFolder(NoID)

	if err := p.MoveLayer(pair.ID, PositionAfter, deepest); !errors.Is(err, ErrInvalidState) {
		t.Errorf("move two levels under depth %d: err = %v", MaxFolderDepth-1, err)
	}
	if pair.Parent() != NoID {
		t.Error("rejected move changed the tree")
	}
	if _, err := p.DuplicateLayer(pair.ID, deepest); !errors.Is(err, ErrInvalidState) {
		t.Errorf("duplicate two levels under depth %d: err = %v", MaxFolderDepth-1, err)
	}

	if err := p.MoveLayer(single.ID, PositionAfter, deepest); err != nil {
		t.Fatalf("move to max depth: %v", err)
	}
	if got := p.layerDepth(single.ID); got != MaxFolderDepth {
		t.Errorf("depth = %d, want %d", got, MaxFolderDepth)
	}
	if err := p.MoveLayer(pair.ID, PositionBefore, single.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("move beside the deepest folder: err = %v", err)
	}
	if _, err := p.DuplicateLayer(single.ID, NoID); err != nil {
		t.Errorf("duplicate in place at max depth: %v", err)
	}
	if _, err := p.DuplicateLayer(single.ID, single.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("duplicate below max depth: err = %v", err)
	}
}

func TestDeleteLayerNextSelection(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	l1, _ := p.AddLayer(NoID)
	l2, _ := p.AddLayer(NoID)
	l3, _ := p.AddLayer(NoID)
	// [3 2 1]

	next, err := p.DeleteLayer(l2.ID) // preceding sibling
	if err != nil || next != l3.ID {
		t.Errorf("delete middle -> %d, %v; want %d", next, err, l3.ID)
	}
	next, _ = p.DeleteLayer(l3.ID) // no preceding sibling: the one that took its index
	if next != l1.ID {
		t.Errorf("delete first -> %d, want %d", next, l1.ID)
	}
	f, _ := p.AddFolder(NoID)
	child, _ := p.AddLayer(f.ID)
	next, _ = p.DeleteLayer(child.ID) // only child: the parent
	if next != f.ID {
		t.Errorf("delete only child -> %d, want %d", next, f.ID)
	}
	_, _ = p.DeleteLayer(l1.ID)
	next, _ = p.DeleteLayer(f.ID)
	if next != NoID {
		t.Errorf("delete last -> %d, want NoID", next)
	}
	if _, err := p.DeleteLayer(l1.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete err = %v", err)
	}
}

func TestDeleteFolderRemovesSubtree(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	f, _ := p.AddFolder(NoID)
	inner, _ := p.AddFolder(f.ID)
	leaf, _ := p.AddLayer(inner.ID)
	if _, err := p.DeleteLayer(f.ID); err != nil {
		t.Fatal(err)
	}
	for _, id := range []ID{f.ID, inner.ID, leaf.ID} {
		if _, err := p.Layer(id); !errors.Is(err, ErrNotFound) {
			t.Errorf("layer %d survived", id)
		}
	}
	if len(p.pixels) != 0 {
		t.Errorf("pixel store holds %d buffers", len(p.pixels))
	}
}

func TestMoveLayer(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	l1, _ := p.AddLayer(NoID)
	l2, _ := p.AddLayer(NoID)
	f3, _ := p.AddFolder(NoID)
	l4, _ := p.AddLayer(f3.ID)
	assertTree(t, p, "[3 [4] 2 1]")

	// After a folder means first child of it.
	if err := p.MoveLayer(l1.ID, PositionAfter, f3.ID); err != nil {
		t.Fatal(err)
	}
	assertTree(t, p, "[3 [1 4] 2]")

	if err := p.MoveLayer(l2.ID, PositionBefore, l4.ID); err != nil {
		t.Fatal(err)
	}
	assertTree(t, p, "[3 [1 2 4]]")

	if err := p.MoveLayer(l1.ID, PositionAfter, l4.ID); err != nil {
		t.Fatal(err)
	}
	assertTree(t, p, "[3 [2 4 1]]")

	if err := p.MoveLayer(l4.ID, PositionBefore, f3.ID); err != nil {
		t.Fatal(err)
	}
	assertTree(t, p, "[4 3 [2 1]]")
	if l4.Parent() != NoID {
		t.Errorf("parent = %d, want NoID", l4.Parent())
	}
}

func TestMoveLayerRejects(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	f, _ := p.AddFolder(NoID)
	inner, _ := p.AddFolder(f.ID)
	leaf, _ := p.AddLayer(inner.ID)

	tests := []struct {
		name   string
		id     ID
		pos    Position
		target ID
		want   error
	}{
		{"onto itself", leaf.ID, PositionBefore, leaf.ID, ErrInvalidState},
		{"into own subtree", f.ID, PositionAfter, inner.ID, ErrInvalidState},
		{"next to own child", f.ID, PositionBefore, leaf.ID, ErrInvalidState},
		{"inner", leaf.ID, PositionInner, f.ID, ErrInvalidState},
		{"missing target", leaf.ID, PositionBefore, 99, ErrNotFound},
		{"missing layer", 99, PositionBefore, leaf.ID, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := p.MoveLayer(tt.id, tt.pos, tt.target); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			assertTree(t, p, "[1 [2 [3]]]")
		})
	}
}

func TestDuplicateLayer(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	l1, _ := p.AddLayer(NoID)
	if err := p.SetPixel(l1.ID, 1, 0, [4]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetLayerOpacity(l1.ID, 30); err != nil {
		t.Fatal(err)
	}
	dup, err := p.DuplicateLayer(l1.ID, NoID)
	if err != nil {
		t.Fatal(err)
	}
	assertTree(t, p, "[2 1]")
	if dup.Name != "Layer 1 Copy" || dup.Opacity != 30 {
		t.Errorf("copy = %+v", dup)
	}
	px, _ := p.Pixel(dup.ID, 1, 0)
	if px != [4]byte{1, 2, 3, 4} {
		t.Errorf("copied pixel = %v", px)
	}
	// The copy owns its buffer.
	_ = p.SetPixel(dup.ID, 1, 0, [4]byte{})
	if px, _ := p.Pixel(l1.ID, 1, 0); px != [4]byte{1, 2, 3, 4} {
		t.Error("editing the copy changed the original")
	}
}

func TestDuplicateFolderKeepsOrder(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	f, _ := p.AddFolder(NoID)
	a, _ := p.AddLayer(f.ID)
	b, _ := p.AddLayer(f.ID)
	assertTree(t, p, "[1 [3 2]]")

	dup, err := p.DuplicateLayer(f.ID, NoID)
	if err != nil {
		t.Fatal(err)
	}
	if dup.ID != 4 {
		t.Fatalf("dup id = %d, want 4", dup.ID)
	}
	assertTree(t, p, "[4 [6 5] 1 [3 2]]")
	c0, _ := p.Layer(dup.children[0])
	if c0.Name != "Layer 2" {
		t.Errorf("copied child name = %q, want Layer 2 (children keep names)", c0.Name)
	}

	other, _ := p.AddFolder(NoID)
	into, err := p.DuplicateLayer(a.ID, other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if into.Parent() != other.ID || into.Name != a.Name {
		t.Errorf("duplicate into folder = %+v", into)
	}
	if _, err := p.DuplicateLayer(a.ID, b.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("duplicate into raster err = %v", err)
	}
}

func TestBottomLayer(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	l1, _ := p.AddLayer(NoID)
	l2, _ := p.AddLayer(NoID)
	if got, _ := p.BottomLayer(l2.ID); got != l1.ID {
		t.Errorf("below top = %d, want %d", got, l1.ID)
	}
	if got, _ := p.BottomLayer(l1.ID); got != NoID {
		t.Errorf("below bottom = %d, want NoID", got)
	}
}

func TestLayerSetters(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	l, _ := p.AddLayer(NoID)
	for _, tt := range []struct{ in, want int }{{-5, 0}, {50, 50}, {150, 100}} {
		if err := p.SetLayerOpacity(l.ID, tt.in); err != nil {
			t.Fatal(err)
		}
		if l.Opacity != tt.want {
			t.Errorf("opacity(%d) = %d, want %d", tt.in, l.Opacity, tt.want)
		}
	}
	if err := p.SetLayerName(l.ID, "ink"); err != nil || l.Name != "ink" {
		t.Errorf("rename: %v %q", err, l.Name)
	}
	if err := p.SetLayerVisibility(l.ID, false); err != nil || l.Visible {
		t.Errorf("hide: %v %v", err, l.Visible)
	}
	if err := p.SetLayerOffset(l.ID, 3, -2); err != nil || l.OffsetX != 3 || l.OffsetY != -2 {
		t.Errorf("offset: %v (%d, %d)", err, l.OffsetX, l.OffsetY)
	}
}

func TestExpandLayerAncestors(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	f, _ := p.AddFolder(NoID)
	inner, _ := p.AddFolder(f.ID)
	leaf, _ := p.AddLayer(inner.ID)
	_ = p.SetLayerExpanded(f.ID, false)
	_ = p.SetLayerExpanded(inner.ID, false)
	if err := p.ExpandLayerAncestors(leaf.ID); err != nil {
		t.Fatal(err)
	}
	if !f.Expanded || !inner.Expanded {
		t.Error("ancestors not expanded")
	}
}

func TestWalkLayers(t *testing.T) {
	p := NewProject("t", 2, 2, nil)
	f, _ := p.AddFolder(NoID)
	_, _ = p.AddLayer(f.ID)
	_, _ = p.AddLayer(NoID)

	var order []ID
	var depths []int
	p.WalkLayers(func(l *Layer, depth int) bool {
		order = append(order, l.ID)
		depths = append(depths, depth)
		return true
	})
	if !equalIDs(order, []ID{3, 1, 2}) {
		t.Errorf("order = %v, want [3 1 2]", order)
	}
	if depths[2] != 1 {
		t.Errorf("child depth = %d, want 1", depths[2])
	}

	order = nil
	p.WalkLayers(func(l *Layer, _ int) bool {
		order = append(order, l.ID)
		return false
	})
	if !equalIDs(order, []ID{3, 1}) {
		t.Errorf("pruned order = %v, want [3 1]", order)
	}
	if got := p.LayerIDs(); !equalIDs(got, []ID{1, 2, 3}) {
		t.Errorf("LayerIDs = %v", got)
	}
}
