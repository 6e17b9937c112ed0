package marionette

import (
	"fmt"
	"slices"
)

// LayerKind distinguishes raster layers from folders.
type LayerKind uint8

const (
	KindRaster LayerKind = iota // leaf with a pixel buffer in the project's store
	KindFolder                  // ordered container of layers and folders
)

// MaxFolderDepth is the deepest folder nesting the layer tree accepts.
const MaxFolderDepth = 8

// Layer is a raster layer or a folder. Both share one struct; Kind selects
// the behavior. Fields are exported for reading. Change them through the
// Project setters so render caches are invalidated.
type Layer struct {
	ID      ID
	Name    string
	Kind    LayerKind
	Opacity int // 0-100
	Visible bool

	// OffsetX and OffsetY are transient: set while a move is in progress and
	// reset to zero when it is committed.
	OffsetX, OffsetY int

	// Expanded is only meaningful for folders.
	Expanded bool

	parent   ID
	children []ID
}

func newLayer(id ID, name string, kind LayerKind, parent ID) *Layer {
	return &Layer{
		ID:       id,
		Name:     name,
		Kind:     kind,
		Opacity:  100,
		Visible:  true,
		Expanded: true,
		parent:   parent,
	}
}

// IsFolder reports whether l is a folder.
func (l *Layer) IsFolder() bool { return l.Kind == KindFolder }

// Parent returns the id of the containing folder, or NoID at top level.
func (l *Layer) Parent() ID { return l.parent }

// Children returns the folder's child ids, topmost first.
// The returned slice MUST NOT be mutated.
func (l *Layer) Children() []ID { return l.children }

// NumChildren returns the number of children.
func (l *Layer) NumChildren() int { return len(l.children) }

// Layer returns the layer or folder with the given id.
func (p *Project) Layer(id ID) (*Layer, error) {
	l, ok := p.layerMap[id]
	if !ok {
		return nil, fmt.Errorf("marionette: layer %d: %w", id, ErrNotFound)
	}
	return l, nil
}

// Layers returns the top-level layer ids, topmost first.
// The returned slice MUST NOT be mutated.
func (p *Project) Layers() []ID { return p.layers }

// LayerIDs returns every live layer and folder id in ascending order.
func (p *Project) LayerIDs() []ID {
	ids := make([]ID, 0, len(p.layerMap))
	for id := range p.layerMap {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// layerContainer returns a pointer to the child slice that holds entities whose
// parent is parent.
func (p *Project) layerContainer(parent ID) *[]ID {
	if parent == NoID {
		return &p.layers
	}
	return &p.layerMap[parent].children
}

// layerIndex returns the index of l inside its container.
func (p *Project) layerIndex(l *Layer) int {
	return indexOfID(*p.layerContainer(l.parent), l.ID)
}

func (p *Project) layerNames() []string {
	names := make([]string, 0, len(p.layerMap))
	for _, l := range p.layerMap {
		names = append(names, l.Name)
	}
	return names
}

// isLayerAncestor reports whether candidate is id itself or one of its
// ancestors.
func (p *Project) isLayerAncestor(candidate, id ID) bool {
	for cur := id; cur != NoID; {
		if cur == candidate {
			return true
		}
		l, ok := p.layerMap[cur]
		if !ok {
			return false
		}
		cur = l.parent
	}
	return false
}

func (p *Project) layerDepth(id ID) int {
	depth := 0
	for cur := id; cur != NoID; depth++ {
		cur = p.layerMap[cur].parent
	}
	return depth
}

// folderHeight returns the number of folder levels in l's subtree, counting
// l itself when it is a folder.
func (p *Project) folderHeight(l *Layer) int {
	if !l.IsFolder() {
		return 0
	}
	h := 0
	for _, child := range l.children {
		h = max(h, p.folderHeight(p.layerMap[child]))
	}
	return h + 1
}

// checkNesting fails when placing l under parent would nest a folder past
// MaxFolderDepth.
func (p *Project) checkNesting(l *Layer, parent ID) error {
	if p.layerDepth(parent)+p.folderHeight(l) > MaxFolderDepth {
		return fmt.Errorf("marionette: folder nesting exceeds %d: %w", MaxFolderDepth, ErrInvalidState)
	}
	return nil
}

// resolveAnchor maps an insertion anchor to a parent and index: above a
// layer, or at the top of a folder, or at the top of the document.
func (p *Project) resolveAnchor(anchor ID) (parent ID, index int, err error) {
	if anchor == NoID {
		return NoID, 0, nil
	}
	a, err := p.Layer(anchor)
	if err != nil {
		return NoID, 0, err
	}
	if a.IsFolder() {
		return a.ID, 0, nil
	}
	return a.parent, p.layerIndex(a), nil
}

// AddLayer inserts an empty raster layer directly above anchor, at the top
// of anchor when it is a folder, or at the top of the document when anchor
// is NoID. The new layer gets a fresh id, a zero-filled pixel buffer and a
// default name "Layer N".
func (p *Project) AddLayer(anchor ID) (*Layer, error) {
	parent, index, err := p.resolveAnchor(anchor)
	if err != nil {
		return nil, err
	}
	return p.insertNewLayer(KindRaster, parent, index), nil
}

// AddFolder inserts an empty folder the same way AddLayer inserts a layer.
// It fails with ErrInvalidState past MaxFolderDepth.
func (p *Project) AddFolder(anchor ID) (*Layer, error) {
	parent, index, err := p.resolveAnchor(anchor)
	if err != nil {
		return nil, err
	}
	if p.layerDepth(parent)+1 > MaxFolderDepth {
		return nil, fmt.Errorf("marionette: folder nesting exceeds %d: %w", MaxFolderDepth, ErrInvalidState)
	}
	return p.insertNewLayer(KindFolder, parent, index), nil
}

func (p *Project) insertNewLayer(kind LayerKind, parent ID, index int) *Layer {
	prefix := "Layer "
	if kind == KindFolder {
		prefix = "Folder "
	}
	l := newLayer(p.nextID(), p.availableName(prefix, p.layerNames()), kind, parent)
	if kind == KindRaster {
		p.pixels[l.ID] = make([]byte, p.width*p.height*4)
	}
	p.attachLayer(l, parent, index)
	if p.debug {
		debugCheckDepth("layer", l.Name, p.layerDepth(l.ID))
	}
	return l
}

// attachLayer registers l and inserts it into parent's container at index.
func (p *Project) attachLayer(l *Layer, parent ID, index int) {
	l.parent = parent
	c := p.layerContainer(parent)
	*c = insertID(*c, index, l.ID)
	p.layerMap[l.ID] = l
	p.MarkLayerAsShouldReRender(l.ID)
}

// DeleteLayer removes a layer or a folder with its whole subtree. Pixel
// buffers and render caches of every removed entity are purged and bones
// bound to a removed layer are unbound. It returns
// the id the UI should select next: the preceding sibling, else the sibling
// that took the removed index, else the parent (NoID at top level).
func (p *Project) DeleteLayer(id ID) (ID, error) {
	l, err := p.Layer(id)
	if err != nil {
		return NoID, err
	}
	c := p.layerContainer(l.parent)
	var index int
	*c, index = removeID(*c, id)
	p.purgeLayer(l)
	if l.parent != NoID {
		p.MarkLayerAsShouldReRender(l.parent)
	}
	p.shouldReRender = true

	if len(*c) == 0 {
		return l.parent, nil
	}
	index = max(index-1, 0)
	return (*c)[index], nil
}

// purgeLayer removes l and its descendants from the id map, the pixel store
// and every render cache.
func (p *Project) purgeLayer(l *Layer) {
	for _, child := range l.children {
		p.purgeLayer(p.layerMap[child])
	}
	for _, b := range p.boneMap {
		if b.LayerID == l.ID {
			b.LayerID = NoID
		}
	}
	delete(p.layerMap, l.ID)
	delete(p.pixels, l.ID)
	p.purgeCaches(l.ID)
}

// MoveLayer relocates a layer within or across containers. PositionBefore
// places it above target. PositionAfter places it below target, except
// when target is a folder: then it becomes the folder's first child.
// Moves that would nest folders past MaxFolderDepth fail with
// ErrInvalidState.
func (p *Project) MoveLayer(id ID, pos Position, target ID) error {
	l, err := p.Layer(id)
	if err != nil {
		return err
	}
	t, err := p.Layer(target)
	if err != nil {
		return err
	}
	if id == target {
		return fmt.Errorf("marionette: move layer %d onto itself: %w", id, ErrInvalidState)
	}
	var newParent ID
	switch {
	case pos == PositionAfter && t.IsFolder():
		newParent = t.ID
	case pos == PositionBefore || pos == PositionAfter:
		newParent = t.parent
	default:
		return fmt.Errorf("marionette: move layer: position %v: %w", pos, ErrInvalidState)
	}
	if p.isLayerAncestor(id, newParent) {
		return fmt.Errorf("marionette: move layer %d into its own subtree: %w", id, ErrInvalidState)
	}
	if err := p.checkNesting(l, newParent); err != nil {
		return err
	}

	oldParent := l.parent
	old := p.layerContainer(oldParent)
	*old, _ = removeID(*old, id)

	index := 0
	if newParent == t.parent {
		index = p.layerIndex(t)
		if pos == PositionAfter {
			index++
		}
	}
	l.parent = newParent
	c := p.layerContainer(newParent)
	*c = insertID(*c, index, id)

	if oldParent != NoID {
		p.MarkLayerAsShouldReRender(oldParent)
	}
	if newParent != NoID {
		p.MarkLayerAsShouldReRender(newParent)
	}
	p.shouldReRender = true
	return nil
}

// DuplicateLayer deep-copies a layer or folder subtree. With into == NoID
// the copy is named "<name> Copy" and placed directly above the original.
// Otherwise it keeps its name and goes to the top of folder into. Like
// AddFolder it fails with ErrInvalidState past MaxFolderDepth.
func (p *Project) DuplicateLayer(id ID, into ID) (*Layer, error) {
	l, err := p.Layer(id)
	if err != nil {
		return nil, err
	}
	parent, index := l.parent, p.layerIndex(l)
	name := l.Name + " Copy"
	if into != NoID {
		f, err := p.Layer(into)
		if err != nil {
			return nil, err
		}
		if !f.IsFolder() {
			return nil, fmt.Errorf("marionette: duplicate into layer %d: not a folder: %w", into, ErrInvalidState)
		}
		parent, index, name = into, 0, l.Name
	}
	if err := p.checkNesting(l, parent); err != nil {
		return nil, err
	}
	return p.duplicateLayer(l, parent, index, name), nil
}

func (p *Project) duplicateLayer(src *Layer, parent ID, index int, name string) *Layer {
	clone := newLayer(p.nextID(), name, src.Kind, parent)
	clone.Opacity = src.Opacity
	clone.Visible = src.Visible
	clone.Expanded = src.Expanded
	if src.Kind == KindRaster {
		p.pixels[clone.ID] = slices.Clone(p.pixels[src.ID])
	}
	p.attachLayer(clone, parent, index)
	// Each child copy goes to index 0, so walk bottom-up to keep the order.
	for i := len(src.children) - 1; i >= 0; i-- {
		child := p.layerMap[src.children[i]]
		p.duplicateLayer(child, clone.ID, 0, child.Name)
	}
	return clone
}

// BottomLayer returns the sibling directly below id, or NoID when id is the
// last entry of its container.
func (p *Project) BottomLayer(id ID) (ID, error) {
	l, err := p.Layer(id)
	if err != nil {
		return NoID, err
	}
	c := *p.layerContainer(l.parent)
	i := indexOfID(c, id)
	if i >= len(c)-1 {
		return NoID, nil
	}
	return c[i+1], nil
}

// SetLayerName renames a layer or folder.
func (p *Project) SetLayerName(id ID, name string) error {
	l, err := p.Layer(id)
	if err != nil {
		return err
	}
	l.Name = name
	return nil
}

// SetLayerVisibility shows or hides a layer or folder.
func (p *Project) SetLayerVisibility(id ID, visible bool) error {
	l, err := p.Layer(id)
	if err != nil {
		return err
	}
	l.Visible = visible
	p.MarkLayerAsShouldReRender(id)
	return nil
}

// SetLayerOpacity sets opacity, clamped to [0, 100].
func (p *Project) SetLayerOpacity(id ID, opacity int) error {
	l, err := p.Layer(id)
	if err != nil {
		return err
	}
	l.Opacity = min(max(opacity, 0), 100)
	p.MarkLayerAsShouldReRender(id)
	return nil
}

// SetLayerExpanded expands or collapses a folder in the layer tree.
func (p *Project) SetLayerExpanded(id ID, expanded bool) error {
	l, err := p.Layer(id)
	if err != nil {
		return err
	}
	l.Expanded = expanded
	return nil
}

// ExpandLayerAncestors expands every folder above id so it is visible in
// the layer tree.
func (p *Project) ExpandLayerAncestors(id ID) error {
	l, err := p.Layer(id)
	if err != nil {
		return err
	}
	for cur := l.parent; cur != NoID; cur = p.layerMap[cur].parent {
		p.layerMap[cur].Expanded = true
	}
	return nil
}

// SetLayerOffset sets the transient draw offset of an in-progress move.
func (p *Project) SetLayerOffset(id ID, x, y int) error {
	l, err := p.Layer(id)
	if err != nil {
		return err
	}
	l.OffsetX, l.OffsetY = x, y
	p.MarkLayerAsShouldReRender(id)
	return nil
}

// WalkLayers calls fn for every layer and folder depth-first, topmost first,
// with the nesting depth (0 at top level). Returning false from fn skips the
// entity's children.
func (p *Project) WalkLayers(fn func(l *Layer, depth int) bool) {
	p.walkLayers(p.layers, 0, fn)
}

func (p *Project) walkLayers(ids []ID, depth int, fn func(*Layer, int) bool) {
	for _, id := range ids {
		l := p.layerMap[id]
		if fn(l, depth) && l.IsFolder() {
			p.walkLayers(l.children, depth+1, fn)
		}
	}
}
