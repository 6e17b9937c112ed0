package marionette

import "math"

// Vec2 is a 2D vector used for pivots, pointer positions and segment
// endpoints. Document space has its origin at the top-left, Y down.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Mul scales v by s.
func (v Vec2) Mul(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Norm returns v scaled to unit length, or the zero vector when v is zero.
func (v Vec2) Norm() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Angle returns the direction of v in radians, measured from +X toward +Y.
func (v Vec2) Angle() float64 { return math.Atan2(v.Y, v.X) }

// Rotate rotates v by rad radians around the point c.
func (v Vec2) Rotate(c Vec2, rad float64) Vec2 {
	sin, cos := math.Sincos(rad)
	dx, dy := v.X-c.X, v.Y-c.Y
	return Vec2{
		X: c.X + dx*cos - dy*sin,
		Y: c.Y + dx*sin + dy*cos,
	}
}
