package marionette

import (
	"errors"
	"testing"
)

// newPlaybackProject returns an animation at 4 fps with keyframes at 0 and
// 3, so one pass lasts exactly one second.
func newPlaybackProject(t *testing.T, loop bool) (*Project, ID) {
	t.Helper()
	p, anim := newTimeline(t, 0, 3)
	if err := p.SetAnimationFPS(anim, 4); err != nil {
		t.Fatal(err)
	}
	if err := p.SetAnimationLoop(anim, loop); err != nil {
		t.Fatal(err)
	}
	return p, anim
}

func TestPlayerLoops(t *testing.T) {
	p, anim := newPlaybackProject(t, true)
	pl := NewPlayer(p)
	if err := pl.Play(anim); err != nil {
		t.Fatal(err)
	}
	if pl.Frame() != 0 || !pl.Playing() || pl.Animation() != anim {
		t.Fatalf("after Play: frame %d playing %v", pl.Frame(), pl.Playing())
	}
	for i, want := range []int{1, 2, 3, 0, 1, 2, 3, 0} {
		frame, playing := pl.Update(0.25)
		if frame != want || !playing {
			t.Errorf("tick %d = %d, %v; want %d, true", i, frame, playing, want)
		}
	}
}

func TestPlayerStopsOnLastFrame(t *testing.T) {
	p, anim := newPlaybackProject(t, false)
	pl := NewPlayer(p)
	_ = pl.Play(anim)
	for i, want := range []int{1, 2, 3} {
		if frame, _ := pl.Update(0.25); frame != want {
			t.Errorf("tick %d = %d, want %d", i, frame, want)
		}
	}
	frame, playing := pl.Update(0.25)
	if frame != 3 || playing || pl.Playing() {
		t.Errorf("end = %d, %v; want 3, stopped", frame, playing)
	}
	if frame, playing := pl.Update(0.25); frame != 3 || playing {
		t.Errorf("update after stop = %d, %v", frame, playing)
	}
}

func TestPlayerLongTick(t *testing.T) {
	p, anim := newPlaybackProject(t, true)
	pl := NewPlayer(p)
	_ = pl.Play(anim)
	if frame, _ := pl.Update(0.6); frame != 2 {
		t.Errorf("frame = %d, want 2", frame)
	}
}

func TestPlayerEmptyTimeline(t *testing.T) {
	p, anim := newTimeline(t)
	pl := NewPlayer(p)
	if err := pl.Play(anim); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v", err)
	}
	if pl.Playing() {
		t.Error("player started on an empty timeline")
	}
	if err := pl.Play(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing animation err = %v", err)
	}
}

func TestPlayerStopsWhenAnimationDeleted(t *testing.T) {
	p, anim := newPlaybackProject(t, true)
	pl := NewPlayer(p)
	_ = pl.Play(anim)
	pl.Update(0.25)
	if _, err := p.DeleteAnimation(anim); err != nil {
		t.Fatal(err)
	}
	if frame, playing := pl.Update(0.25); playing || frame != 1 {
		t.Errorf("update = %d, %v; want 1, stopped", frame, playing)
	}
}

func TestEditorPlayback(t *testing.T) {
	e := NewEditor(DefaultConfig(), nil, nil)
	anim := e.SelectedAnimation()
	p := e.Project()
	for _, f := range []int{0, 3} {
		if _, err := p.AddKeyframe(anim, f); err != nil {
			t.Fatal(err)
		}
	}
	_ = p.SetAnimationFPS(anim, 4)

	e.SetCurrentFrame(7)
	if err := e.Play(); err != nil {
		t.Fatal(err)
	}
	if e.CurrentFrame() != 0 {
		t.Errorf("Play should rewind, frame = %d", e.CurrentFrame())
	}
	e.Update(0.25)
	e.Update(0.25)
	if e.CurrentFrame() != 2 {
		t.Errorf("frame = %d, want 2", e.CurrentFrame())
	}

	e.Navigate(WorkspaceSkeleton)
	if e.Player().Playing() {
		t.Error("navigating should stop playback")
	}
	e.Update(0.25)
	if e.CurrentFrame() != 2 {
		t.Error("stopped player moved the cursor")
	}
}
