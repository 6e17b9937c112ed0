package marionette

import (
	"fmt"
	"image/color"
	"math"
)

// ID identifies a layer, folder, bone or animation. All four kinds share one
// counter per document, so an ID is unique across kinds.
type ID int

const (
	// NoID means "none": the top-level layer container, or a bone with no
	// associated layer.
	NoID ID = 0
	// RootBoneID is reserved for the skeleton root. The counter never issues it.
	RootBoneID ID = -1
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tint (no color modification).
var ColorWhite = Color{1, 1, 1, 1}

// ColorFromHex builds an opaque color from a 0xRRGGBB value.
func ColorFromHex(v uint32) Color {
	return Color{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
		A: 1,
	}
}

// Hex returns the color as 0xRRGGBB, dropping alpha.
func (c Color) Hex() uint32 {
	return uint32(channel8(c.R))<<16 | uint32(channel8(c.G))<<8 | uint32(channel8(c.B))
}

// RGBA returns the color as a straight-alpha color.NRGBA.
func (c Color) RGBA() color.NRGBA {
	return color.NRGBA{R: channel8(c.R), G: channel8(c.G), B: channel8(c.B), A: channel8(c.A)}
}

func channel8(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Floor(v*255+0.5))))
}

// BackgroundColors are the two tones of the checkerboard drawn behind the
// canvas. They are stored in the document, not in editor preferences.
type BackgroundColors struct {
	Color1 Color
	Color2 Color
}

// DefaultBackgroundColors is white and light grey.
var DefaultBackgroundColors = BackgroundColors{
	Color1: ColorFromHex(0xffffff),
	Color2: ColorFromHex(0xcccccc),
}

// Workspace tags a history record with the editor context it belongs to.
// Undo and redo navigate back to that context.
type Workspace uint8

const (
	WorkspaceNone     Workspace = iota // no navigation on undo/redo
	WorkspacePaint                     // layers and pixels
	WorkspaceSkeleton                  // bone tree and rest pose
	WorkspaceAnimate                   // animations and keyframes
)

func (w Workspace) String() string {
	switch w {
	case WorkspacePaint:
		return "paint"
	case WorkspaceSkeleton:
		return "skeleton"
	case WorkspaceAnimate:
		return "animate"
	default:
		return "none"
	}
}

// Position is a tree drop position used by the move operations.
type Position uint8

const (
	PositionBefore Position = iota // above the target, same container
	PositionAfter                  // below the target; inside it when the target is a folder
	PositionInner                  // first child of the target (bones only)
)

func (p Position) String() string {
	switch p {
	case PositionBefore:
		return "before"
	case PositionAfter:
		return "after"
	case PositionInner:
		return "inner"
	default:
		return fmt.Sprintf("Position(%d)", uint8(p))
	}
}

// Align anchors the old canvas inside the new one during ResizeCanvas.
type Align uint8

const (
	AlignTopLeft Align = iota
	AlignTop
	AlignTopRight
	AlignLeft
	AlignCenter
	AlignRight
	AlignBottomLeft
	AlignBottom
	AlignBottomRight
)

var alignNames = [...]string{
	AlignTopLeft:     "top-left",
	AlignTop:         "top",
	AlignTopRight:    "top-right",
	AlignLeft:        "left",
	AlignCenter:      "center",
	AlignRight:       "right",
	AlignBottomLeft:  "bottom-left",
	AlignBottom:      "bottom",
	AlignBottomRight: "bottom-right",
}

func (a Align) String() string {
	if int(a) < len(alignNames) {
		return alignNames[a]
	}
	return fmt.Sprintf("Align(%d)", uint8(a))
}

// ParseAlign maps an alignment token such as "bottom-right" to an Align.
func ParseAlign(s string) (Align, error) {
	for i, name := range alignNames {
		if name == s {
			return Align(i), nil
		}
	}
	return 0, fmt.Errorf("marionette: unknown align %q: %w", s, ErrInvalidState)
}

// offset returns where the old canvas's origin lands in the new canvas.
func (a Align) offset(oldW, oldH, newW, newH int) (dx, dy int, ok bool) {
	cx := roundHalfUp(float64(newW-oldW) / 2)
	cy := roundHalfUp(float64(newH-oldH) / 2)
	right := newW - oldW
	bottom := newH - oldH
	switch a {
	case AlignTopLeft:
		return 0, 0, true
	case AlignTop:
		return cx, 0, true
	case AlignTopRight:
		return right, 0, true
	case AlignLeft:
		return 0, cy, true
	case AlignCenter:
		return cx, cy, true
	case AlignRight:
		return right, cy, true
	case AlignBottomLeft:
		return 0, bottom, true
	case AlignBottom:
		return cx, bottom, true
	case AlignBottomRight:
		return right, bottom, true
	}
	return 0, 0, false
}

// roundHalfUp rounds halves toward positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
