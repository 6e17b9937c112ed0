package marionette

import (
	"fmt"
	"maps"
	"sort"
)

// DefaultFPS is the frame rate of a new animation.
const DefaultFPS = 24

// BoneTransform is a bone's keyframed delta from its rest pose: a
// translation added to the pivot and a rotation (radians) around it.
// The zero value is the identity.
type BoneTransform struct {
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
	Rotate     float64 `json:"rotate"`
}

// Keyframe holds the authored transforms at one frame. Transforms is
// sparse until FillKeyframesMissingBoneTransform runs.
type Keyframe struct {
	Frame      int
	Transforms map[ID]BoneTransform
}

// Animation is a named timeline. Timeline is kept sorted by Frame with no
// duplicates.
type Animation struct {
	ID       ID
	Name     string
	FPS      int
	Loop     bool
	Timeline []*Keyframe
}

// LastFrame returns the frame of the last keyframe, or -1 when the timeline
// is empty.
func (a *Animation) LastFrame() int {
	if len(a.Timeline) == 0 {
		return -1
	}
	return a.Timeline[len(a.Timeline)-1].Frame
}

// keyframeIndex returns the timeline index of frame, or -1.
func (a *Animation) keyframeIndex(frame int) int {
	i := sort.Search(len(a.Timeline), func(i int) bool { return a.Timeline[i].Frame >= frame })
	if i < len(a.Timeline) && a.Timeline[i].Frame == frame {
		return i
	}
	return -1
}

// insertKeyframe inserts k in frame order. It returns false, leaving the
// timeline unchanged, when the frame is occupied.
func (a *Animation) insertKeyframe(k *Keyframe) bool {
	i := sort.Search(len(a.Timeline), func(i int) bool { return a.Timeline[i].Frame >= k.Frame })
	if i < len(a.Timeline) && a.Timeline[i].Frame == k.Frame {
		return false
	}
	a.Timeline = append(a.Timeline, nil)
	copy(a.Timeline[i+1:], a.Timeline[i:])
	a.Timeline[i] = k
	return true
}

func cloneTransforms(m map[ID]BoneTransform) map[ID]BoneTransform {
	if m == nil {
		return make(map[ID]BoneTransform)
	}
	return maps.Clone(m)
}

// Animation returns the animation with the given id.
func (p *Project) Animation(id ID) (*Animation, error) {
	a, ok := p.animationMap[id]
	if !ok {
		return nil, fmt.Errorf("marionette: animation %d: %w", id, ErrNotFound)
	}
	return a, nil
}

// Animations returns the animation ids in list order.
// The returned slice MUST NOT be mutated.
func (p *Project) Animations() []ID { return p.animations }

// AddAnimation inserts a new empty animation at the top of the list.
func (p *Project) AddAnimation() *Animation {
	names := make([]string, 0, len(p.animationMap))
	for _, a := range p.animationMap {
		names = append(names, a.Name)
	}
	a := &Animation{
		ID:   p.nextID(),
		Name: p.availableName("Animation ", names),
		FPS:  DefaultFPS,
		Loop: true,
	}
	p.animations = insertID(p.animations, 0, a.ID)
	p.animationMap[a.ID] = a
	return a
}

// DeleteAnimation removes an animation. It returns the animation that took
// its place in the list, else the first one, else NoID.
func (p *Project) DeleteAnimation(id ID) (ID, error) {
	if _, err := p.Animation(id); err != nil {
		return NoID, err
	}
	var index int
	p.animations, index = removeID(p.animations, id)
	delete(p.animationMap, id)
	switch {
	case index < len(p.animations):
		return p.animations[index], nil
	case len(p.animations) > 0:
		return p.animations[0], nil
	}
	return NoID, nil
}

// MoveAnimation places an animation before or after target in the list.
func (p *Project) MoveAnimation(id ID, pos Position, target ID) error {
	if _, err := p.Animation(id); err != nil {
		return err
	}
	if _, err := p.Animation(target); err != nil {
		return err
	}
	if id == target {
		return fmt.Errorf("marionette: move animation %d onto itself: %w", id, ErrInvalidState)
	}
	if pos != PositionBefore && pos != PositionAfter {
		return fmt.Errorf("marionette: move animation: position %v: %w", pos, ErrInvalidState)
	}
	p.animations, _ = removeID(p.animations, id)
	index := indexOfID(p.animations, target)
	if pos == PositionAfter {
		index++
	}
	p.animations = insertID(p.animations, index, id)
	return nil
}

// SetAnimationName renames an animation.
func (p *Project) SetAnimationName(id ID, name string) error {
	a, err := p.Animation(id)
	if err != nil {
		return err
	}
	a.Name = name
	return nil
}

// SetAnimationFPS sets the playback rate. fps must be positive.
func (p *Project) SetAnimationFPS(id ID, fps int) error {
	a, err := p.Animation(id)
	if err != nil {
		return err
	}
	if fps <= 0 {
		return fmt.Errorf("marionette: animation %d: fps %d: %w", id, fps, ErrInvalidState)
	}
	a.FPS = fps
	return nil
}

// SetAnimationLoop sets whether playback wraps around.
func (p *Project) SetAnimationLoop(id ID, loop bool) error {
	a, err := p.Animation(id)
	if err != nil {
		return err
	}
	a.Loop = loop
	return nil
}

// --- Timeline ---

// Keyframe returns the keyframe at frame.
func (p *Project) Keyframe(animation ID, frame int) (*Keyframe, error) {
	a, err := p.Animation(animation)
	if err != nil {
		return nil, err
	}
	i := a.keyframeIndex(frame)
	if i < 0 {
		return nil, fmt.Errorf("marionette: keyframe %d of animation %d: %w", frame, animation, ErrNotFound)
	}
	return a.Timeline[i], nil
}

// HasKeyframe reports whether frame holds a keyframe.
func (p *Project) HasKeyframe(animation ID, frame int) bool {
	a, err := p.Animation(animation)
	return err == nil && a.keyframeIndex(frame) >= 0
}

// AddKeyframe creates a keyframe at frame whose pose is a copy of the
// interpolated pose at that frame. An existing keyframe is returned as is.
func (p *Project) AddKeyframe(animation ID, frame int) (*Keyframe, error) {
	a, err := p.Animation(animation)
	if err != nil {
		return nil, err
	}
	if frame < 0 {
		return nil, fmt.Errorf("marionette: keyframe at frame %d: %w", frame, ErrInvalidState)
	}
	if i := a.keyframeIndex(frame); i >= 0 {
		return a.Timeline[i], nil
	}
	k := &Keyframe{Frame: frame, Transforms: cloneTransforms(p.frameTransforms(a, frame))}
	a.insertKeyframe(k)
	return k, nil
}

// DeleteKeyframe removes the keyframe at frame.
func (p *Project) DeleteKeyframe(animation ID, frame int) error {
	a, err := p.Animation(animation)
	if err != nil {
		return err
	}
	i := a.keyframeIndex(frame)
	if i < 0 {
		return fmt.Errorf("marionette: keyframe %d of animation %d: %w", frame, animation, ErrNotFound)
	}
	a.Timeline = append(a.Timeline[:i], a.Timeline[i+1:]...)
	return nil
}

// MoveKeyframe moves the keyframe at from to frame to. It fails with
// ErrInvalidState when to is already occupied.
func (p *Project) MoveKeyframe(animation ID, from, to int) error {
	a, err := p.Animation(animation)
	if err != nil {
		return err
	}
	if to < 0 {
		return fmt.Errorf("marionette: move keyframe to frame %d: %w", to, ErrInvalidState)
	}
	if from == to {
		return nil
	}
	if a.keyframeIndex(to) >= 0 {
		return fmt.Errorf("marionette: move keyframe: frame %d occupied: %w", to, ErrInvalidState)
	}
	i := a.keyframeIndex(from)
	if i < 0 {
		return fmt.Errorf("marionette: keyframe %d of animation %d: %w", from, animation, ErrNotFound)
	}
	k := a.Timeline[i]
	a.Timeline = append(a.Timeline[:i], a.Timeline[i+1:]...)
	k.Frame = to
	a.insertKeyframe(k)
	return nil
}

// FrameMoveLeft shifts every keyframe at or after frame one frame left.
// It reports whether anything moved. Shifting frame 0, or shifting when
// keyframes sit at both frame-1 and frame, fails with ErrInvalidState.
func (p *Project) FrameMoveLeft(animation ID, frame int) (bool, error) {
	a, err := p.Animation(animation)
	if err != nil {
		return false, err
	}
	if len(a.Timeline) == 0 || a.LastFrame() < frame {
		return false, nil
	}
	if frame <= 0 {
		return false, fmt.Errorf("marionette: shift frame %d left: %w", frame, ErrInvalidState)
	}
	if a.keyframeIndex(frame-1) >= 0 && a.keyframeIndex(frame) >= 0 {
		return false, fmt.Errorf("marionette: shift frame %d left: collides with frame %d: %w", frame, frame-1, ErrInvalidState)
	}
	for _, k := range a.Timeline {
		if k.Frame >= frame {
			k.Frame--
		}
	}
	return true, nil
}

// FrameMoveRight shifts every keyframe at or after frame one frame right.
// It reports whether anything moved.
func (p *Project) FrameMoveRight(animation ID, frame int) (bool, error) {
	a, err := p.Animation(animation)
	if err != nil {
		return false, err
	}
	if frame < 0 {
		return false, fmt.Errorf("marionette: shift frame %d right: %w", frame, ErrInvalidState)
	}
	if len(a.Timeline) == 0 || a.LastFrame() < frame {
		return false, nil
	}
	for _, k := range a.Timeline {
		if k.Frame >= frame {
			k.Frame++
		}
	}
	return true, nil
}

// SetKeyframeBoneTransform sets one bone's transform at frame. A missing
// keyframe is created first from the interpolated pose, so the other bones
// keep their current values.
func (p *Project) SetKeyframeBoneTransform(animation ID, frame int, bone ID, t BoneTransform) error {
	if bone <= 0 {
		return fmt.Errorf("marionette: set transform of bone %d: %w", bone, ErrInvalidState)
	}
	if _, err := p.Bone(bone); err != nil {
		return err
	}
	k, err := p.AddKeyframe(animation, frame)
	if err != nil {
		return err
	}
	k.Transforms[bone] = t
	p.shouldReRender = true
	return nil
}
