package marionette

import (
	"fmt"
	"slices"
)

// Bone is a skeleton node. A bone without a Pivot is unposed and takes no
// part in rendering or animation. Fields are exported for reading; change
// them through the Project setters.
type Bone struct {
	ID   ID
	Name string

	Expanded     bool
	Visible      bool
	GizmoVisible bool // draw the bone itself
	ImageVisible bool // draw the layer the bone drives

	// Pivot is the rest position in document space, or nil when unposed.
	Pivot *Vec2
	// Rotation and Length describe the rest segment starting at Pivot.
	Rotation float64
	Length   float64

	// LayerID is the raster layer this bone drives, or NoID.
	LayerID ID

	parent   ID
	children []ID
}

func newBone(id ID, name string, parent ID) *Bone {
	return &Bone{
		ID:           id,
		Name:         name,
		Expanded:     true,
		Visible:      true,
		GizmoVisible: true,
		ImageVisible: true,
		parent:       parent,
	}
}

// IsRoot reports whether b is the skeleton root.
func (b *Bone) IsRoot() bool { return b.ID == RootBoneID }

// Parent returns the parent bone id. The root's parent is NoID; top-level
// bones have RootBoneID.
func (b *Bone) Parent() ID { return b.parent }

// Children returns the child bone ids in order.
// The returned slice MUST NOT be mutated.
func (b *Bone) Children() []ID { return b.children }

// Endpoint returns the far end of the rest segment. It panics on an
// unposed bone.
func (b *Bone) Endpoint() Vec2 {
	return b.Pivot.Add(Vec2{1, 0}.Rotate(Vec2{}, b.Rotation).Mul(b.Length))
}

// RootBone returns the skeleton root.
func (p *Project) RootBone() *Bone { return p.root }

// Bone returns the bone with the given id. RootBoneID resolves to the root.
func (p *Project) Bone(id ID) (*Bone, error) {
	if id == RootBoneID {
		return p.root, nil
	}
	b, ok := p.boneMap[id]
	if !ok {
		return nil, fmt.Errorf("marionette: bone %d: %w", id, ErrNotFound)
	}
	return b, nil
}

// BoneIDs returns every bone id except the root, in ascending order.
func (p *Project) BoneIDs() []ID {
	ids := make([]ID, 0, len(p.boneMap))
	for id := range p.boneMap {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (p *Project) boneNames() []string {
	names := make([]string, 0, len(p.boneMap))
	for _, b := range p.boneMap {
		names = append(names, b.Name)
	}
	return names
}

// nonRootBone resolves id and rejects the root.
func (p *Project) nonRootBone(id ID, op string) (*Bone, error) {
	b, err := p.Bone(id)
	if err != nil {
		return nil, err
	}
	if b.IsRoot() {
		return nil, fmt.Errorf("marionette: %s root bone: %w", op, ErrInvalidState)
	}
	return b, nil
}

// isBoneAncestor reports whether candidate is id itself or one of its
// ancestors.
func (p *Project) isBoneAncestor(candidate, id ID) bool {
	for cur := id; cur != NoID; {
		if cur == candidate {
			return true
		}
		b, err := p.Bone(cur)
		if err != nil {
			return false
		}
		cur = b.parent
	}
	return false
}

func (p *Project) boneDepth(b *Bone) int {
	depth := 0
	for cur := b; !cur.IsRoot(); depth++ {
		cur, _ = p.Bone(cur.parent)
	}
	return depth
}

// AddBone appends a new unposed bone as the last child of parent
// (RootBoneID for top level) and backfills identity transforms for it in
// every keyframe.
func (p *Project) AddBone(parent ID) (*Bone, error) {
	pb, err := p.Bone(parent)
	if err != nil {
		return nil, err
	}
	b := newBone(p.nextID(), p.availableName("Bone ", p.boneNames()), pb.ID)
	pb.children = append(pb.children, b.ID)
	p.boneMap[b.ID] = b
	p.FillKeyframesMissingBoneTransform()
	if p.debug {
		debugCheckDepth("bone", b.Name, p.boneDepth(b))
	}
	return b, nil
}

// DeleteBone removes a bone and its descendants. Keyframe entries for the
// removed ids are kept so that restoring the bone restores its animation;
// they are dropped when the document is saved. It returns the bone to
// select next: the preceding sibling, else the following one, else the
// parent.
func (p *Project) DeleteBone(id ID) (ID, error) {
	b, err := p.nonRootBone(id, "delete")
	if err != nil {
		return NoID, err
	}
	parent := p.mustBone(b.parent)
	var index int
	parent.children, index = removeID(parent.children, id)
	p.purgeBone(b)
	p.shouldReRender = true
	if len(parent.children) == 0 {
		return parent.ID, nil
	}
	return parent.children[max(index-1, 0)], nil
}

func (p *Project) purgeBone(b *Bone) {
	for _, child := range b.children {
		p.purgeBone(p.boneMap[child])
	}
	delete(p.boneMap, b.ID)
}

// mustBone resolves an id known to be live. A miss means the arena is
// corrupt, which is a programming error.
func (p *Project) mustBone(id ID) *Bone {
	b, err := p.Bone(id)
	if err != nil {
		panic(fmt.Sprintf("marionette: dangling bone reference %d", id))
	}
	return b
}

// MoveBone relocates a bone: before or after target among target's
// siblings, or as target's first child with PositionInner. The root cannot
// be moved, and before/after the root is rejected.
func (p *Project) MoveBone(id ID, pos Position, target ID) error {
	b, err := p.nonRootBone(id, "move")
	if err != nil {
		return err
	}
	t, err := p.Bone(target)
	if err != nil {
		return err
	}
	var newParent *Bone
	switch pos {
	case PositionBefore, PositionAfter:
		if t.IsRoot() {
			return fmt.Errorf("marionette: move bone %d %v root: %w", id, pos, ErrInvalidState)
		}
		newParent = p.mustBone(t.parent)
	case PositionInner:
		newParent = t
	default:
		return fmt.Errorf("marionette: move bone: position %v: %w", pos, ErrInvalidState)
	}
	if id == target || p.isBoneAncestor(id, newParent.ID) {
		return fmt.Errorf("marionette: move bone %d into its own subtree: %w", id, ErrInvalidState)
	}

	old := p.mustBone(b.parent)
	old.children, _ = removeID(old.children, id)
	index := 0
	if pos != PositionInner {
		index = indexOfID(newParent.children, target)
		if pos == PositionAfter {
			index++
		}
	}
	newParent.children = insertID(newParent.children, index, id)
	b.parent = newParent.ID
	p.shouldReRender = true
	return nil
}

// SetBoneVector sets the rest pose. A nil pivot unposes the bone.
func (p *Project) SetBoneVector(id ID, pivot *Vec2, rotation, length float64) error {
	b, err := p.nonRootBone(id, "set vector of")
	if err != nil {
		return err
	}
	if pivot != nil {
		v := *pivot
		pivot = &v
	}
	b.Pivot = pivot
	b.Rotation = rotation
	b.Length = length
	p.shouldReRender = true
	return nil
}

// SetBoneName renames a bone.
func (p *Project) SetBoneName(id ID, name string) error {
	b, err := p.nonRootBone(id, "rename")
	if err != nil {
		return err
	}
	b.Name = name
	return nil
}

// SetBoneLayerID associates a raster layer with the bone, or clears the
// association with NoID.
func (p *Project) SetBoneLayerID(id, layer ID) error {
	b, err := p.nonRootBone(id, "set layer of")
	if err != nil {
		return err
	}
	if layer != NoID {
		if _, err := p.Layer(layer); err != nil {
			return err
		}
	}
	b.LayerID = layer
	p.shouldReRender = true
	return nil
}

// SetBoneVisibility shows or hides a bone together with its subtree.
func (p *Project) SetBoneVisibility(id ID, visible bool) error {
	b, err := p.Bone(id)
	if err != nil {
		return err
	}
	b.Visible = visible
	p.shouldReRender = true
	return nil
}

// SetBoneGizmoVisibility toggles drawing of the bone itself.
func (p *Project) SetBoneGizmoVisibility(id ID, visible bool) error {
	b, err := p.Bone(id)
	if err != nil {
		return err
	}
	b.GizmoVisible = visible
	p.shouldReRender = true
	return nil
}

// SetBoneImageVisibility toggles drawing of the bone's associated layer.
func (p *Project) SetBoneImageVisibility(id ID, visible bool) error {
	b, err := p.Bone(id)
	if err != nil {
		return err
	}
	b.ImageVisible = visible
	p.shouldReRender = true
	return nil
}

// SetBoneExpanded expands or collapses a bone in the skeleton tree.
func (p *Project) SetBoneExpanded(id ID, expanded bool) error {
	b, err := p.Bone(id)
	if err != nil {
		return err
	}
	b.Expanded = expanded
	return nil
}

// ExpandBoneAncestors expands every bone above id.
func (p *Project) ExpandBoneAncestors(id ID) error {
	b, err := p.Bone(id)
	if err != nil {
		return err
	}
	for cur := b.parent; cur != NoID; {
		pb := p.mustBone(cur)
		pb.Expanded = true
		cur = pb.parent
	}
	return nil
}

// WalkBones calls fn for every bone depth-first starting at the root, with
// the depth (0 for the root). Returning false skips the bone's children.
func (p *Project) WalkBones(fn func(b *Bone, depth int) bool) {
	p.walkBones(p.root, 0, fn)
}

func (p *Project) walkBones(b *Bone, depth int, fn func(*Bone, int) bool) {
	if !fn(b, depth) {
		return
	}
	for _, id := range b.children {
		p.walkBones(p.boneMap[id], depth+1, fn)
	}
}
