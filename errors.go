package marionette

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every error returned by this package wraps exactly one of
// them, so callers can branch with errors.Is.
var (
	// ErrNotFound is returned when an id does not resolve to a live layer,
	// bone, animation or keyframe.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation's precondition does not
	// hold, e.g. moving a keyframe onto an occupied frame.
	ErrInvalidState = errors.New("invalid state")

	// ErrOutOfRange is returned by pixel accessors for coordinates outside
	// the canvas. It wraps ErrInvalidState.
	ErrOutOfRange = fmt.Errorf("out of range: %w", ErrInvalidState)

	// ErrLoad is returned when a document cannot be read. The live document
	// is left untouched.
	ErrLoad = errors.New("load failed")
)
