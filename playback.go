package marionette

import (
	"fmt"
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Player steps the current frame of an animation in real time: from frame
// 0, one frame every 1/fps seconds up to the last keyframe, then back to 0
// when the animation loops, or stopped on the last frame otherwise.
//
// The frame rate, loop flag and length are captured by Play. Call Update
// once per tick; there is no global clock.
type Player struct {
	project   *Project
	animation ID
	tween     *gween.Tween
	last      int
	loop      bool
	frame     int
	playing   bool
}

// NewPlayer creates a stopped player for p.
func NewPlayer(p *Project) *Player {
	return &Player{project: p}
}

// Play starts playback of animation from frame 0. It fails with
// ErrInvalidState when the timeline is empty.
func (pl *Player) Play(animation ID) error {
	pl.Stop()
	a, err := pl.project.Animation(animation)
	if err != nil {
		return err
	}
	last := a.LastFrame()
	if last < 0 {
		return fmt.Errorf("marionette: play animation %d: empty timeline: %w", animation, ErrInvalidState)
	}
	frames := float32(last + 1)
	pl.animation = animation
	pl.last = last
	pl.loop = a.Loop
	pl.frame = 0
	pl.tween = gween.New(0, frames, frames/float32(a.FPS), ease.Linear)
	pl.playing = true
	return nil
}

// Stop halts playback. The frame stays where it is.
func (pl *Player) Stop() {
	pl.playing = false
	pl.tween = nil
}

// Playing reports whether Update advances the frame.
func (pl *Player) Playing() bool { return pl.playing }

// Animation returns the animation last passed to Play.
func (pl *Player) Animation() ID { return pl.animation }

// Frame returns the current frame.
func (pl *Player) Frame() int { return pl.frame }

// Update advances playback by dt seconds and returns the current frame and
// whether playback continues. Playback stops when the animation has been
// deleted.
func (pl *Player) Update(dt float32) (frame int, playing bool) {
	if !pl.playing {
		return pl.frame, false
	}
	if _, err := pl.project.Animation(pl.animation); err != nil {
		pl.Stop()
		return pl.frame, false
	}
	val, finished := pl.tween.Update(dt)
	if finished {
		if !pl.loop {
			pl.frame = pl.last
			pl.Stop()
			return pl.frame, false
		}
		pl.tween.Reset()
		pl.frame = 0
		return pl.frame, true
	}
	// Absorb float32 error so that a tick of exactly 1/fps lands on the
	// next frame.
	pl.frame = min(int(math.Floor(float64(val)+1e-4)), pl.last)
	return pl.frame, true
}
