// Package frame implements the rigid-body transforms used to place modules.
//
// A Transform maps local coordinates to world coordinates:
// world = Rot*local + Tran. Compose(a, b) applies b first, then a.
package frame

import (
	"math"

	"github.com/chazu/elfin/pkg/xdb"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// UnitConversion divides database translations into scene units
// (database relations are recorded in PyMOL ångströms).
const UnitConversion = 10.0

// Tolerance is the default comparison tolerance for transforms.
const Tolerance = 1e-9

// Mat3 is a row-major 3x3 matrix.
type Mat3 [3][3]float64

// Transform is a rotation followed by a translation.
type Transform struct {
	Rot  Mat3   `json:"rot"`
	Tran v3.Vec `json:"tran"`
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rot: Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// FromRotTran builds a transform from raw rotation rows and a translation.
func FromRotTran(rot [3][3]float64, tran v3.Vec) Transform {
	return Transform{Rot: Mat3(rot), Tran: tran}
}

// FromRelation converts a database relation to scene units. Relations
// from xdb lookups are validated; entries missing from a malformed one
// read as zero.
func FromRelation(rel xdb.Relation) Transform {
	var t Transform
	for i := 0; i < 3 && i < len(rel.Rot); i++ {
		for j := 0; j < 3 && j < len(rel.Rot[i]); j++ {
			t.Rot[i][j] = rel.Rot[i][j]
		}
	}
	at := func(i int) float64 {
		if i < len(rel.Tran) {
			return rel.Tran[i]
		}
		return 0
	}
	t.Tran = v3.Vec{X: at(0), Y: at(1), Z: at(2)}.DivScalar(UnitConversion)
	return t
}

// Translation returns a pure translation.
func Translation(v v3.Vec) Transform {
	t := Identity()
	t.Tran = v
	return t
}

// RotationZ returns a rotation of a radians about the Z axis.
func RotationZ(a float64) Transform {
	c, s := math.Cos(a), math.Sin(a)
	return Transform{Rot: Mat3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}}
}

// RotationX returns a rotation of a radians about the X axis.
func RotationX(a float64) Transform {
	c, s := math.Cos(a), math.Sin(a)
	return Transform{Rot: Mat3{{1, 0, 0}, {0, c, -s}, {0, s, c}}}
}

func (m Mat3) mulVec(v v3.Vec) v3.Vec {
	return v3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

func (m Mat3) mul(b Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * b[k][j]
			}
		}
	}
	return r
}

func (m Mat3) transpose() Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[j][i]
		}
	}
	return r
}

// Compose returns a∘b.
func Compose(a, b Transform) Transform {
	return Transform{
		Rot:  a.Rot.mul(b.Rot),
		Tran: a.Rot.mulVec(b.Tran).Add(a.Tran),
	}
}

// Then is shorthand for Compose(t, b).
func (t Transform) Then(b Transform) Transform {
	return Compose(t, b)
}

// Inverse returns the inverse of a rigid transform. The rotation is
// assumed orthonormal.
func (t Transform) Inverse() Transform {
	rt := t.Rot.transpose()
	return Transform{
		Rot:  rt,
		Tran: rt.mulVec(t.Tran).Neg(),
	}
}

// Apply maps a local point into the transform's parent space.
func (t Transform) Apply(p v3.Vec) v3.Vec {
	return t.Rot.mulVec(p).Add(t.Tran)
}

// ApproxEqual compares two transforms element-wise within tol.
func (t Transform) ApproxEqual(b Transform, tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(t.Rot[i][j]-b.Rot[i][j]) > tol {
				return false
			}
		}
	}
	d := t.Tran.Sub(b.Tran)
	return math.Abs(d.X) <= tol && math.Abs(d.Y) <= tol && math.Abs(d.Z) <= tol
}

// EulerZYX decomposes the rotation into angles (radians) such that
// Rot = Rz(z) * Ry(y) * Rx(x).
func (t Transform) EulerZYX() (x, y, z float64) {
	r := t.Rot
	sy := -r[2][0]
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	y = math.Asin(sy)
	if math.Abs(sy) < 1-1e-12 {
		x = math.Atan2(r[2][1], r[2][2])
		z = math.Atan2(r[1][0], r[0][0])
		return x, y, z
	}
	// Gimbal lock: fold all of the remaining rotation into z.
	x = 0
	z = math.Atan2(-r[0][1], r[1][1])
	return x, y, z
}
