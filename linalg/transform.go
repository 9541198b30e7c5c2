// Package linalg provides the small linear-algebra primitives the ICP core
// treats as an external collaborator: rigid/affine transform composition and
// inversion, the normal-transform derivation, and symmetric eigendecomposition
// for 3x3 and 6x6 systems.
package linalg

import (
	"math"

	"github.com/golang/geo/r3"
)

// Transform is a 4x4 affine map x' = M*x + T, stored as a 3x3 linear part
// plus a translation. For a rigid transform M is orthogonal with det +1; for
// a similarity transform M is a uniform scale times a rotation; for a general
// affine transform M is any invertible 3x3 matrix.
type Transform struct {
	M [3][3]float64
	T r3.Vector
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{M: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// Translation returns a translation-only transform.
func Translation(t r3.Vector) Transform {
	return Transform{M: Identity().M, T: t}
}

// ScaleUniform returns a scale-only transform about the origin.
func ScaleUniform(s float64) Transform {
	return Transform{M: [3][3]float64{{s, 0, 0}, {0, s, 0}, {0, 0, s}}}
}

// FromLinear returns a linear-only transform (zero translation) wrapping m.
func FromLinear(m [3][3]float64) Transform {
	return Transform{M: m}
}

// RotationAboutAxis builds a rotation-only transform of angle radians about
// axis (which need not be normalized) using Rodrigues' formula.
func RotationAboutAxis(axis r3.Vector, angle float64) Transform {
	n := axis.Norm()
	if n < 1e-15 {
		return Identity()
	}
	axis = axis.Mul(1 / n)
	c := math.Cos(angle)
	s := math.Sin(angle)
	t := 1 - c
	x, y, z := axis.X, axis.Y, axis.Z

	return Transform{M: [3][3]float64{
		{t*x*x + c, t*x*y - s*z, t*x*z + s*y},
		{t*x*y + s*z, t*y*y + c, t*y*z - s*x},
		{t*x*z - s*y, t*y*z + s*x, t*z*z + c},
	}}
}

// Apply transforms a point: M*p + T.
func (xf Transform) Apply(p r3.Vector) r3.Vector {
	return MulMatVec(xf.M, p).Add(xf.T)
}

// ApplyNormal transforms a unit normal using the inverse-transpose of the
// linear part, renormalizing the result. Translation does not affect
// normals.
func (xf Transform) ApplyNormal(n r3.Vector) r3.Vector {
	nt := NormalMatrix(xf.M)
	out := MulMatVec(nt, n)
	l := out.Norm()
	if l < 1e-15 {
		return n
	}
	return out.Mul(1 / l)
}

// Compose returns a transform equivalent to applying b first, then a:
// Compose(a, b).Apply(p) == a.Apply(b.Apply(p)).
func Compose(a, b Transform) Transform {
	return Transform{
		M: MulMat(a.M, b.M),
		T: MulMatVec(a.M, b.T).Add(a.T),
	}
}

// Inverse returns the inverse of xf, assuming M is invertible.
func Inverse(xf Transform) Transform {
	inv := Inverse3(xf.M)
	return Transform{
		M: inv,
		T: MulMatVec(inv, xf.T).Mul(-1),
	}
}

// NormalMatrix returns the inverse-transpose of a 3x3 linear map, the
// standard transform for surface normals under a non-rigid linear map.
func NormalMatrix(m [3][3]float64) [3][3]float64 {
	return Transpose(Inverse3(m))
}

// Orthogonalize projects the linear part of xf onto the nearest rotation
// matrix (det +1), removing numerical drift accumulated from repeated
// transform composition. Uses the eigendecomposition of M^T*M to build
// M*(M^T*M)^(-1/2), the orthogonal polar factor.
func Orthogonalize(xf Transform) Transform {
	mtm := MulMat(Transpose(xf.M), xf.M)
	invSqrt := SymInvSqrt3(Symmetrize3(mtm))
	r := MulMat(xf.M, invSqrt)
	if Det3(r) < 0 {
		// Reflection crept in; restore det +1 by negating the third column.
		r[0][2], r[1][2], r[2][2] = -r[0][2], -r[1][2], -r[2][2]
	}
	return Transform{M: r, T: xf.T}
}

// IsOrthogonal reports whether m is orthogonal with determinant +1 to within
// tol.
func IsOrthogonal(m [3][3]float64, tol float64) bool {
	mtm := MulMat(Transpose(m), m)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(mtm[i][j]-want) > tol {
				return false
			}
		}
	}
	return math.Abs(Det3(m)-1) < tol
}
