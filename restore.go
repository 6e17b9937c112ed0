package marionette

import (
	"fmt"
	"slices"

	"github.com/jinzhu/copier"
)

// Restore-info values are snapshots taken right before an undoable
// mutation. Each Restore* consumer is the exact inverse of the mutation
// the snapshot was taken for: it reinserts the entity at its original
// container and index, or moves it back there. Snapshots own their data,
// so later edits never leak into them.

// LayerRestoreInfo captures a layer or a folder subtree, pixels included.
type LayerRestoreInfo struct {
	ID       ID
	Name     string
	Kind     LayerKind
	Opacity  int
	Visible  bool
	Expanded bool
	Parent   ID
	Index    int
	Pixels   []byte
	Children []LayerRestoreInfo
	// Bindings maps each bone bound to a layer of the subtree to that
	// layer. Only the top-level snapshot carries it.
	Bindings map[ID]ID
}

// LayerRestoreInfo snapshots a layer or folder for undoing its creation or
// deletion.
func (p *Project) LayerRestoreInfo(id ID) (LayerRestoreInfo, error) {
	l, err := p.Layer(id)
	if err != nil {
		return LayerRestoreInfo{}, err
	}
	info := p.layerRestoreInfo(l)
	subtree := make(map[ID]bool)
	collectLayerIDs(info, subtree)
	for _, b := range p.boneMap {
		if subtree[b.LayerID] {
			if info.Bindings == nil {
				info.Bindings = make(map[ID]ID)
			}
			info.Bindings[b.ID] = b.LayerID
		}
	}
	return info, nil
}

func collectLayerIDs(info LayerRestoreInfo, into map[ID]bool) {
	into[info.ID] = true
	for _, child := range info.Children {
		collectLayerIDs(child, into)
	}
}

func (p *Project) layerRestoreInfo(l *Layer) LayerRestoreInfo {
	info := LayerRestoreInfo{
		ID:       l.ID,
		Name:     l.Name,
		Kind:     l.Kind,
		Opacity:  l.Opacity,
		Visible:  l.Visible,
		Expanded: l.Expanded,
		Parent:   l.parent,
		Index:    p.layerIndex(l),
	}
	if l.IsFolder() {
		info.Children = make([]LayerRestoreInfo, 0, len(l.children))
		for _, child := range l.children {
			info.Children = append(info.Children, p.layerRestoreInfo(p.layerMap[child]))
		}
	} else {
		info.Pixels = slices.Clone(p.pixels[l.ID])
	}
	return info
}

// RestoreLayer reinserts a deleted layer or folder subtree at its original
// parent and index and rebinds the bones that were bound to it.
func (p *Project) RestoreLayer(info LayerRestoreInfo) (*Layer, error) {
	if info.Parent != NoID {
		parent, err := p.Layer(info.Parent)
		if err != nil {
			return nil, err
		}
		if !parent.IsFolder() {
			return nil, fmt.Errorf("marionette: restore layer %d: parent %d is not a folder: %w", info.ID, info.Parent, ErrInvalidState)
		}
	}
	if err := p.checkLayerRestorable(info); err != nil {
		return nil, err
	}
	l := p.restoreLayer(info)
	for bone, layer := range info.Bindings {
		if b, ok := p.boneMap[bone]; ok && b.LayerID == NoID {
			b.LayerID = layer
		}
	}
	p.shouldReRender = true
	return l, nil
}

func (p *Project) checkLayerRestorable(info LayerRestoreInfo) error {
	if _, ok := p.layerMap[info.ID]; ok {
		return fmt.Errorf("marionette: restore layer %d: already exists: %w", info.ID, ErrInvalidState)
	}
	if info.Kind == KindRaster && len(info.Pixels) != p.width*p.height*4 {
		return fmt.Errorf("marionette: restore layer %d: pixel buffer does not match canvas: %w", info.ID, ErrInvalidState)
	}
	for _, child := range info.Children {
		if err := p.checkLayerRestorable(child); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) restoreLayer(info LayerRestoreInfo) *Layer {
	l := newLayer(info.ID, info.Name, info.Kind, info.Parent)
	l.Opacity = info.Opacity
	l.Visible = info.Visible
	l.Expanded = info.Expanded
	if info.Kind == KindRaster {
		p.pixels[l.ID] = slices.Clone(info.Pixels)
	}
	p.attachLayer(l, info.Parent, info.Index)
	for _, child := range info.Children {
		p.restoreLayer(child)
	}
	return l
}

// LayerPositionRestoreInfo captures where a layer sits before a move.
type LayerPositionRestoreInfo struct {
	ID     ID
	Parent ID
	Index  int
}

// LayerPositionRestoreInfo snapshots a layer's container and index.
func (p *Project) LayerPositionRestoreInfo(id ID) (LayerPositionRestoreInfo, error) {
	l, err := p.Layer(id)
	if err != nil {
		return LayerPositionRestoreInfo{}, err
	}
	return LayerPositionRestoreInfo{ID: id, Parent: l.parent, Index: p.layerIndex(l)}, nil
}

// RestoreLayerPosition moves a layer back to the recorded container and
// index.
func (p *Project) RestoreLayerPosition(info LayerPositionRestoreInfo) (*Layer, error) {
	l, err := p.Layer(info.ID)
	if err != nil {
		return nil, err
	}
	if info.Parent != NoID {
		parent, err := p.Layer(info.Parent)
		if err != nil {
			return nil, err
		}
		if !parent.IsFolder() || p.isLayerAncestor(info.ID, info.Parent) {
			return nil, fmt.Errorf("marionette: restore position of layer %d into %d: %w", info.ID, info.Parent, ErrInvalidState)
		}
	}
	oldParent := l.parent
	c := p.layerContainer(oldParent)
	*c, _ = removeID(*c, l.ID)
	l.parent = info.Parent
	c = p.layerContainer(info.Parent)
	*c = insertID(*c, info.Index, l.ID)

	if oldParent != NoID {
		p.MarkLayerAsShouldReRender(oldParent)
	}
	p.MarkLayerAsShouldReRender(l.ID)
	return l, nil
}

// BoneRestoreInfo captures a bone subtree.
type BoneRestoreInfo struct {
	ID           ID
	Name         string
	Parent       ID
	Index        int
	Expanded     bool
	Visible      bool
	GizmoVisible bool
	ImageVisible bool
	Pivot        *Vec2
	Rotation     float64
	Length       float64
	LayerID      ID
	Children     []BoneRestoreInfo
}

// BoneRestoreInfo snapshots a bone subtree for undoing its creation or
// deletion.
func (p *Project) BoneRestoreInfo(id ID) (BoneRestoreInfo, error) {
	b, err := p.nonRootBone(id, "snapshot")
	if err != nil {
		return BoneRestoreInfo{}, err
	}
	return p.boneRestoreInfo(b), nil
}

func (p *Project) boneRestoreInfo(b *Bone) BoneRestoreInfo {
	info := BoneRestoreInfo{
		ID:           b.ID,
		Name:         b.Name,
		Parent:       b.parent,
		Index:        indexOfID(p.mustBone(b.parent).children, b.ID),
		Expanded:     b.Expanded,
		Visible:      b.Visible,
		GizmoVisible: b.GizmoVisible,
		ImageVisible: b.ImageVisible,
		Rotation:     b.Rotation,
		Length:       b.Length,
		LayerID:      b.LayerID,
		Children:     make([]BoneRestoreInfo, 0, len(b.children)),
	}
	if b.Pivot != nil {
		v := *b.Pivot
		info.Pivot = &v
	}
	for _, child := range b.children {
		info.Children = append(info.Children, p.boneRestoreInfo(p.boneMap[child]))
	}
	return info
}

// RestoreBone reinserts a deleted bone subtree at its original parent and
// index, then backfills keyframes for the restored ids.
func (p *Project) RestoreBone(info BoneRestoreInfo) (*Bone, error) {
	if _, err := p.Bone(info.Parent); err != nil {
		return nil, err
	}
	if err := p.checkBoneRestorable(info); err != nil {
		return nil, err
	}
	b := p.restoreBone(info)
	p.FillKeyframesMissingBoneTransform()
	p.shouldReRender = true
	return b, nil
}

func (p *Project) checkBoneRestorable(info BoneRestoreInfo) error {
	if info.ID <= 0 {
		return fmt.Errorf("marionette: restore bone %d: %w", info.ID, ErrInvalidState)
	}
	if _, ok := p.boneMap[info.ID]; ok {
		return fmt.Errorf("marionette: restore bone %d: already exists: %w", info.ID, ErrInvalidState)
	}
	for _, child := range info.Children {
		if err := p.checkBoneRestorable(child); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) restoreBone(info BoneRestoreInfo) *Bone {
	b := newBone(info.ID, info.Name, info.Parent)
	b.Expanded = info.Expanded
	b.Visible = info.Visible
	b.GizmoVisible = info.GizmoVisible
	b.ImageVisible = info.ImageVisible
	if info.Pivot != nil {
		v := *info.Pivot
		b.Pivot = &v
	}
	b.Rotation = info.Rotation
	b.Length = info.Length
	b.LayerID = info.LayerID

	parent := p.mustBone(info.Parent)
	parent.children = insertID(parent.children, info.Index, b.ID)
	p.boneMap[b.ID] = b
	for _, child := range info.Children {
		p.restoreBone(child)
	}
	return b
}

// BonePositionRestoreInfo captures where a bone sits before a move.
type BonePositionRestoreInfo struct {
	ID     ID
	Parent ID
	Index  int
}

// BonePositionRestoreInfo snapshots a bone's parent and index.
func (p *Project) BonePositionRestoreInfo(id ID) (BonePositionRestoreInfo, error) {
	b, err := p.nonRootBone(id, "snapshot position of")
	if err != nil {
		return BonePositionRestoreInfo{}, err
	}
	return BonePositionRestoreInfo{
		ID:     id,
		Parent: b.parent,
		Index:  indexOfID(p.mustBone(b.parent).children, id),
	}, nil
}

// RestoreBonePosition moves a bone back to the recorded parent and index.
func (p *Project) RestoreBonePosition(info BonePositionRestoreInfo) (*Bone, error) {
	b, err := p.nonRootBone(info.ID, "restore position of")
	if err != nil {
		return nil, err
	}
	parent, err := p.Bone(info.Parent)
	if err != nil {
		return nil, err
	}
	if p.isBoneAncestor(info.ID, parent.ID) {
		return nil, fmt.Errorf("marionette: restore position of bone %d into its own subtree: %w", info.ID, ErrInvalidState)
	}
	old := p.mustBone(b.parent)
	old.children, _ = removeID(old.children, b.ID)
	parent.children = insertID(parent.children, info.Index, b.ID)
	b.parent = parent.ID
	p.shouldReRender = true
	return b, nil
}

// AnimationRestoreInfo captures an animation with a deep copy of its
// timeline.
type AnimationRestoreInfo struct {
	ID       ID
	Name     string
	FPS      int
	Loop     bool
	Index    int
	Timeline []*Keyframe
}

func copyTimeline(src []*Keyframe) []*Keyframe {
	var dst []*Keyframe
	if err := copier.CopyWithOption(&dst, &src, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds, which cannot happen here.
		panic(fmt.Sprintf("marionette: copy timeline: %v", err))
	}
	return dst
}

// AnimationRestoreInfo snapshots an animation for undoing its creation or
// deletion.
func (p *Project) AnimationRestoreInfo(id ID) (AnimationRestoreInfo, error) {
	a, err := p.Animation(id)
	if err != nil {
		return AnimationRestoreInfo{}, err
	}
	return AnimationRestoreInfo{
		ID:       a.ID,
		Name:     a.Name,
		FPS:      a.FPS,
		Loop:     a.Loop,
		Index:    indexOfID(p.animations, id),
		Timeline: copyTimeline(a.Timeline),
	}, nil
}

// RestoreAnimation reinserts a deleted animation at its original index.
func (p *Project) RestoreAnimation(info AnimationRestoreInfo) (*Animation, error) {
	if _, ok := p.animationMap[info.ID]; ok {
		return nil, fmt.Errorf("marionette: restore animation %d: already exists: %w", info.ID, ErrInvalidState)
	}
	a := &Animation{
		ID:       info.ID,
		Name:     info.Name,
		FPS:      info.FPS,
		Loop:     info.Loop,
		Timeline: copyTimeline(info.Timeline),
	}
	p.animations = insertID(p.animations, info.Index, a.ID)
	p.animationMap[a.ID] = a
	return a, nil
}

// AnimationPositionRestoreInfo captures an animation's list index.
type AnimationPositionRestoreInfo struct {
	ID    ID
	Index int
}

// AnimationPositionRestoreInfo snapshots an animation's list index.
func (p *Project) AnimationPositionRestoreInfo(id ID) (AnimationPositionRestoreInfo, error) {
	if _, err := p.Animation(id); err != nil {
		return AnimationPositionRestoreInfo{}, err
	}
	return AnimationPositionRestoreInfo{ID: id, Index: indexOfID(p.animations, id)}, nil
}

// RestoreAnimationPosition moves an animation back to the recorded index.
func (p *Project) RestoreAnimationPosition(info AnimationPositionRestoreInfo) (*Animation, error) {
	a, err := p.Animation(info.ID)
	if err != nil {
		return nil, err
	}
	p.animations, _ = removeID(p.animations, info.ID)
	p.animations = insertID(p.animations, info.Index, info.ID)
	return a, nil
}

// KeyframeRestoreInfo captures one keyframe.
type KeyframeRestoreInfo struct {
	Animation  ID
	Frame      int
	Transforms map[ID]BoneTransform
}

// KeyframeRestoreInfo snapshots the keyframe at frame for undoing its
// creation or deletion.
func (p *Project) KeyframeRestoreInfo(animation ID, frame int) (KeyframeRestoreInfo, error) {
	k, err := p.Keyframe(animation, frame)
	if err != nil {
		return KeyframeRestoreInfo{}, err
	}
	return KeyframeRestoreInfo{Animation: animation, Frame: frame, Transforms: cloneTransforms(k.Transforms)}, nil
}

// RestoreKeyframe reinserts a keyframe. It fails with ErrInvalidState when
// the frame is occupied.
func (p *Project) RestoreKeyframe(info KeyframeRestoreInfo) (*Keyframe, error) {
	a, err := p.Animation(info.Animation)
	if err != nil {
		return nil, err
	}
	k := &Keyframe{Frame: info.Frame, Transforms: cloneTransforms(info.Transforms)}
	if !a.insertKeyframe(k) {
		return nil, fmt.Errorf("marionette: restore keyframe %d: frame occupied: %w", info.Frame, ErrInvalidState)
	}
	p.shouldReRender = true
	return k, nil
}

// KeyframeTransformRestoreInfo captures one bone's transform at a frame.
// IsNew is set when the frame had no keyframe, so undo removes the
// keyframe created on demand.
type KeyframeTransformRestoreInfo struct {
	Animation ID
	Frame     int
	Bone      ID
	IsNew     bool
	Transform BoneTransform
}

// KeyframeTransformRestoreInfo snapshots a bone's transform before
// SetKeyframeBoneTransform.
func (p *Project) KeyframeTransformRestoreInfo(animation ID, frame int, bone ID) (KeyframeTransformRestoreInfo, error) {
	a, err := p.Animation(animation)
	if err != nil {
		return KeyframeTransformRestoreInfo{}, err
	}
	if _, err := p.Bone(bone); err != nil {
		return KeyframeTransformRestoreInfo{}, err
	}
	info := KeyframeTransformRestoreInfo{Animation: animation, Frame: frame, Bone: bone}
	i := a.keyframeIndex(frame)
	if i < 0 {
		info.IsNew = true
		return info, nil
	}
	info.Transform = a.Timeline[i].Transforms[bone]
	return info, nil
}

// RestoreKeyframeTransform undoes SetKeyframeBoneTransform.
func (p *Project) RestoreKeyframeTransform(info KeyframeTransformRestoreInfo) error {
	if info.IsNew {
		return p.DeleteKeyframe(info.Animation, info.Frame)
	}
	return p.SetKeyframeBoneTransform(info.Animation, info.Frame, info.Bone, info.Transform)
}
