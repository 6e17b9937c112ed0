package marionette

import "math"

// Mat33 is a 3x3 affine matrix in row-vector convention: a point is the row
// [x y 1] and transforms as p' = p × M. Translation lives in the bottom row.
//
//	| a  b  0 |
//	| c  d  0 |
//	| tx ty 1 |
//
// Under this convention A.Mul(B) applies A first, then B.
type Mat33 [3][3]float64

// Identity33 is the identity matrix.
var Identity33 = Mat33{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// Translate33 returns a translation by (tx, ty).
func Translate33(tx, ty float64) Mat33 {
	return Mat33{
		{1, 0, 0},
		{0, 1, 0},
		{tx, ty, 1},
	}
}

// Rotate33 returns a rotation by rad radians around the origin. Positive
// angles turn +X toward +Y.
func Rotate33(rad float64) Mat33 {
	sin, cos := math.Sincos(rad)
	return Mat33{
		{cos, sin, 0},
		{-sin, cos, 0},
		{0, 0, 1},
	}
}

// RotateAround33 returns a rotation by rad radians around the point p:
// Translate(-p) × Rotate(rad) × Translate(p).
func RotateAround33(p Vec2, rad float64) Mat33 {
	return MulAll(Translate33(-p.X, -p.Y), Rotate33(rad), Translate33(p.X, p.Y))
}

// Mul returns m × o.
func (m Mat33) Mul(o Mat33) Mat33 {
	var r Mat33
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r[row][col] = m[row][0]*o[0][col] + m[row][1]*o[1][col] + m[row][2]*o[2][col]
		}
	}
	return r
}

// MulAll multiplies left to right. It returns Identity33 for no arguments.
func MulAll(ms ...Mat33) Mat33 {
	r := Identity33
	for _, m := range ms {
		r = r.Mul(m)
	}
	return r
}

// Invert returns the inverse of m. ok is false, and the identity is returned,
// when m is singular (determinant ≈ 0).
func (m Mat33) Invert() (inv Mat33, ok bool) {
	m00, m01, m02 := m[0][0], m[0][1], m[0][2]
	m10, m11, m12 := m[1][0], m[1][1], m[1][2]
	m20, m21, m22 := m[2][0], m[2][1], m[2][2]

	det := m00*(m11*m22-m12*m21) - m01*(m10*m22-m12*m20) + m02*(m10*m21-m11*m20)
	if det > -1e-12 && det < 1e-12 {
		return Identity33, false
	}
	invDet := 1.0 / det
	return Mat33{
		{
			(m11*m22 - m12*m21) * invDet,
			-(m01*m22 - m02*m21) * invDet,
			(m01*m12 - m02*m11) * invDet,
		},
		{
			-(m10*m22 - m12*m20) * invDet,
			(m00*m22 - m02*m20) * invDet,
			-(m00*m12 - m02*m10) * invDet,
		},
		{
			(m10*m21 - m11*m20) * invDet,
			-(m00*m21 - m01*m20) * invDet,
			(m00*m11 - m01*m10) * invDet,
		},
	}, true
}

// TransformPoint applies m to the point v.
func (m Mat33) TransformPoint(v Vec2) Vec2 {
	return Vec2{
		X: v.X*m[0][0] + v.Y*m[1][0] + m[2][0],
		Y: v.X*m[0][1] + v.Y*m[1][1] + m[2][1],
	}
}

// Affine returns m as the column-vector 2D affine [a, b, c, d, tx, ty] used by
// renderers such as ebiten.GeoM.SetElement:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func (m Mat33) Affine() [6]float64 {
	return [6]float64{m[0][0], m[0][1], m[1][0], m[1][1], m[2][0], m[2][1]}
}
