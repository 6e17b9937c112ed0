package marionette

import (
	"errors"
	"testing"
)

func keyframeFrames(t *testing.T, p *Project, anim ID) []int {
	t.Helper()
	a, err := p.Animation(anim)
	if err != nil {
		t.Fatal(err)
	}
	frames := make([]int, len(a.Timeline))
	for i, k := range a.Timeline {
		frames[i] = k.Frame
	}
	return frames
}

func assertFrames(t *testing.T, p *Project, anim ID, want ...int) {
	t.Helper()
	got := keyframeFrames(t, p, anim)
	if len(got) != len(want) {
		t.Errorf("frames = %v, want %v", got, want)
		return
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("frames = %v, want %v", got, want)
			return
		}
	}
}

func newTimeline(t *testing.T, frames ...int) (*Project, ID) {
	t.Helper()
	p := New(DefaultConfig(), nil)
	anim := p.Animations()[0]
	for _, f := range frames {
		if _, err := p.AddKeyframe(anim, f); err != nil {
			t.Fatal(err)
		}
	}
	return p, anim
}

func TestAddAnimationAtTop(t *testing.T) {
	p := New(DefaultConfig(), nil)
	first := p.Animations()[0]
	a := p.AddAnimation()
	if got := p.Animations(); !equalIDs(got, []ID{a.ID, first}) {
		t.Errorf("animations = %v", got)
	}
	if a.FPS != DefaultFPS || !a.Loop || a.Name != "Animation 2" {
		t.Errorf("new animation = %+v", a)
	}
}

func TestDeleteAnimationNextSelection(t *testing.T) {
	p := NewProject("anim", 4, 4, nil)
	c := p.AddAnimation().ID
	b := p.AddAnimation().ID
	a := p.AddAnimation().ID
	// list: a b c

	next, err := p.DeleteAnimation(b)
	if err != nil || next != c {
		t.Errorf("delete middle = %d, %v; want %d", next, err, c)
	}
	next, _ = p.DeleteAnimation(c)
	if next != a {
		t.Errorf("delete last = %d, want first %d", next, a)
	}
	next, _ = p.DeleteAnimation(a)
	if next != NoID {
		t.Errorf("delete only = %d, want NoID", next)
	}
	if _, err := p.DeleteAnimation(a); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestMoveAnimation(t *testing.T) {
	p := NewProject("anim", 4, 4, nil)
	c := p.AddAnimation().ID
	b := p.AddAnimation().ID
	a := p.AddAnimation().ID

	if err := p.MoveAnimation(a, PositionAfter, c); err != nil {
		t.Fatal(err)
	}
	if got := p.Animations(); !equalIDs(got, []ID{b, c, a}) {
		t.Errorf("after = %v", got)
	}
	if err := p.MoveAnimation(c, PositionBefore, b); err != nil {
		t.Fatal(err)
	}
	if got := p.Animations(); !equalIDs(got, []ID{c, b, a}) {
		t.Errorf("before = %v", got)
	}
	if err := p.MoveAnimation(c, PositionInner, b); !errors.Is(err, ErrInvalidState) {
		t.Errorf("inner err = %v", err)
	}
	if err := p.MoveAnimation(c, PositionAfter, c); !errors.Is(err, ErrInvalidState) {
		t.Errorf("self err = %v", err)
	}
}

func TestAnimationSetters(t *testing.T) {
	p := New(DefaultConfig(), nil)
	id := p.Animations()[0]
	_ = p.SetAnimationName(id, "walk")
	_ = p.SetAnimationLoop(id, false)
	if err := p.SetAnimationFPS(id, 12); err != nil {
		t.Fatal(err)
	}
	for _, fps := range []int{0, -3} {
		if err := p.SetAnimationFPS(id, fps); !errors.Is(err, ErrInvalidState) {
			t.Errorf("fps %d err = %v", fps, err)
		}
	}
	a, _ := p.Animation(id)
	if a.Name != "walk" || a.Loop || a.FPS != 12 {
		t.Errorf("animation = %+v", a)
	}
}

func TestAddKeyframe(t *testing.T) {
	p, anim := newTimeline(t, 5, 1, 3)
	assertFrames(t, p, anim, 1, 3, 5)

	k, _ := p.Keyframe(anim, 3)
	again, err := p.AddKeyframe(anim, 3)
	if err != nil || again != k {
		t.Error("adding an existing frame should return the stored keyframe")
	}
	if _, err := p.AddKeyframe(anim, -1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("negative frame err = %v", err)
	}
	a, _ := p.Animation(anim)
	if a.LastFrame() != 5 {
		t.Errorf("LastFrame = %d", a.LastFrame())
	}
	if !p.HasKeyframe(anim, 1) || p.HasKeyframe(anim, 2) || p.HasKeyframe(99, 1) {
		t.Error("HasKeyframe mismatch")
	}
}

func TestLastFrameEmpty(t *testing.T) {
	if got := (&Animation{}).LastFrame(); got != -1 {
		t.Errorf("LastFrame = %d, want -1", got)
	}
}

func TestDeleteKeyframe(t *testing.T) {
	p, anim := newTimeline(t, 0, 4)
	if err := p.DeleteKeyframe(anim, 0); err != nil {
		t.Fatal(err)
	}
	assertFrames(t, p, anim, 4)
	if err := p.DeleteKeyframe(anim, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestMoveKeyframe(t *testing.T) {
	p, anim := newTimeline(t, 0, 2, 6)
	k, _ := p.Keyframe(anim, 2)
	if err := p.MoveKeyframe(anim, 2, 8); err != nil {
		t.Fatal(err)
	}
	assertFrames(t, p, anim, 0, 6, 8)
	if moved, _ := p.Keyframe(anim, 8); moved != k {
		t.Error("the keyframe object should move, not be copied")
	}

	if err := p.MoveKeyframe(anim, 0, 6); !errors.Is(err, ErrInvalidState) {
		t.Errorf("occupied err = %v", err)
	}
	if err := p.MoveKeyframe(anim, 3, 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
	if err := p.MoveKeyframe(anim, 0, -1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("negative err = %v", err)
	}
	if err := p.MoveKeyframe(anim, 6, 6); err != nil {
		t.Errorf("no-op move err = %v", err)
	}
	assertFrames(t, p, anim, 0, 6, 8)
}

func TestFrameMoveLeft(t *testing.T) {
	tests := []struct {
		name    string
		frames  []int
		at      int
		moved   bool
		wantErr error
		want    []int
	}{
		{"shifts tail", []int{0, 3, 5}, 3, true, nil, []int{0, 2, 4}},
		{"gap before", []int{0, 2}, 1, true, nil, []int{0, 1}},
		{"past the end", []int{0, 2}, 3, false, nil, []int{0, 2}},
		{"empty", nil, 1, false, nil, nil},
		{"frame zero", []int{0, 2}, 0, false, ErrInvalidState, []int{0, 2}},
		{"collision", []int{1, 2}, 2, false, ErrInvalidState, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, anim := newTimeline(t, tt.frames...)
			moved, err := p.FrameMoveLeft(anim, tt.at)
			if !errors.Is(err, tt.wantErr) || moved != tt.moved {
				t.Errorf("FrameMoveLeft = %v, %v; want %v, %v", moved, err, tt.moved, tt.wantErr)
			}
			assertFrames(t, p, anim, tt.want...)
		})
	}
}

func TestFrameMoveRight(t *testing.T) {
	p, anim := newTimeline(t, 0, 3, 5)
	moved, err := p.FrameMoveRight(anim, 1)
	if err != nil || !moved {
		t.Fatalf("FrameMoveRight = %v, %v", moved, err)
	}
	assertFrames(t, p, anim, 0, 4, 6)

	if moved, _ := p.FrameMoveRight(anim, 7); moved {
		t.Error("shifting past the last keyframe should be a no-op")
	}
	if _, err := p.FrameMoveRight(anim, -1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("negative err = %v", err)
	}

	// Right then left at the next frame is the identity.
	if _, err := p.FrameMoveRight(anim, 4); err != nil {
		t.Fatal(err)
	}
	if _, err := p.FrameMoveLeft(anim, 5); err != nil {
		t.Fatal(err)
	}
	assertFrames(t, p, anim, 0, 4, 6)
}

func TestSetKeyframeBoneTransform(t *testing.T) {
	p, anim := newTimeline(t)
	a := mustAddBone(t, p, RootBoneID)
	b := mustAddBone(t, p, RootBoneID)

	if err := p.SetKeyframeBoneTransform(anim, 0, a, BoneTransform{TranslateX: 4}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetKeyframeBoneTransform(anim, 0, b, BoneTransform{Rotate: 2}); err != nil {
		t.Fatal(err)
	}
	// Frame 10 is created from the held pose of frame 0.
	if err := p.SetKeyframeBoneTransform(anim, 10, a, BoneTransform{TranslateX: 8}); err != nil {
		t.Fatal(err)
	}
	k, _ := p.Keyframe(anim, 10)
	if k.Transforms[a].TranslateX != 8 || k.Transforms[b].Rotate != 2 {
		t.Errorf("frame 10 = %v", k.Transforms)
	}
	k0, _ := p.Keyframe(anim, 0)
	if k0.Transforms[a].TranslateX != 4 {
		t.Error("frame 0 shares storage with frame 10")
	}

	for _, bad := range []ID{RootBoneID, NoID} {
		if err := p.SetKeyframeBoneTransform(anim, 0, bad, BoneTransform{}); !errors.Is(err, ErrInvalidState) {
			t.Errorf("bone %d err = %v", bad, err)
		}
	}
	if err := p.SetKeyframeBoneTransform(anim, 0, 99, BoneTransform{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing bone err = %v", err)
	}
	if p.HasKeyframe(anim, 99) {
		t.Error("rejected call created a keyframe")
	}
}
