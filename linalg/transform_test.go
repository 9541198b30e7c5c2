package linalg

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func vectorsEqual(a, b r3.Vector, tol float64) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		xf   Transform
		p    r3.Vector
		want r3.Vector
	}{
		{"identity", Identity(), r3.Vector{X: 1, Y: 2, Z: 3}, r3.Vector{X: 1, Y: 2, Z: 3}},
		{"translation", Translation(r3.Vector{X: 10, Y: -5, Z: 0}), r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{X: 11, Y: -4, Z: 1}},
		{"scale", ScaleUniform(2), r3.Vector{X: 3, Y: 4, Z: 5}, r3.Vector{X: 6, Y: 8, Z: 10}},
		{
			"90deg about z", RotationAboutAxis(r3.Vector{X: 0, Y: 0, Z: 1}, math.Pi/2),
			r3.Vector{X: 1, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 1, Z: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.xf.Apply(tt.p)
			if !vectorsEqual(got, tt.want, 1e-9) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComposeInverse(t *testing.T) {
	rot := RotationAboutAxis(r3.Vector{X: 1, Y: 1, Z: 0}, 0.7)
	trans := Translation(r3.Vector{X: 3, Y: -2, Z: 1})
	xf := Compose(trans, rot)

	inv := Inverse(xf)
	roundTrip := Compose(inv, xf)

	p := r3.Vector{X: 5, Y: 6, Z: 7}
	if !vectorsEqual(roundTrip.Apply(p), p, 1e-9) {
		t.Errorf("Compose(Inverse(xf), xf) is not identity: got %+v applied to %+v", roundTrip.Apply(p), p)
	}
}

func TestRotationAboutAxisIsOrthogonal(t *testing.T) {
	xf := RotationAboutAxis(r3.Vector{X: 0.3, Y: 0.5, Z: 0.8}, 1.234)
	if !IsOrthogonal(xf.M, 1e-9) {
		t.Errorf("rotation matrix is not orthogonal: %+v", xf.M)
	}
}

func TestOrthogonalizeRemovesDrift(t *testing.T) {
	xf := RotationAboutAxis(r3.Vector{X: 0, Y: 1, Z: 0}, 0.4)
	// Simulate drift accumulated from repeated composition.
	drifted := xf
	drifted.M[0][0] *= 1.01
	drifted.M[1][1] *= 0.995

	fixed := Orthogonalize(drifted)
	if !IsOrthogonal(fixed.M, 1e-4) {
		t.Errorf("Orthogonalize left a non-orthogonal matrix: %+v", fixed.M)
	}
}

func TestNormalMatrixPreservesOrthogonalTransform(t *testing.T) {
	xf := RotationAboutAxis(r3.Vector{X: 0, Y: 0, Z: 1}, 0.9)
	n := r3.Vector{X: 0, Y: 0, Z: 1}
	got := xf.ApplyNormal(n)
	want := xf.Apply(n) // for a pure rotation, normal transform == point transform (minus translation, here zero)
	if !vectorsEqual(got, want, 1e-9) {
		t.Errorf("rotation should transform normals like points: got %+v want %+v", got, want)
	}
}

func TestEigen3OrdersAscending(t *testing.T) {
	sym := [3][3]float64{
		{4, 0, 0},
		{0, 1, 0},
		{0, 0, 9},
	}
	_, vals := Eigen3(sym)
	if vals[0] > vals[1] || vals[1] > vals[2] {
		t.Fatalf("eigenvalues not ascending: %v", vals)
	}
	if !almostEqual(vals[0], 1) || !almostEqual(vals[1], 4) || !almostEqual(vals[2], 9) {
		t.Errorf("wrong eigenvalues: %v", vals)
	}
}

func TestSymSqrtRoundTrips(t *testing.T) {
	sym := [3][3]float64{
		{4, 0, 0},
		{0, 9, 0},
		{0, 0, 16},
	}
	sqrt := SymSqrt3(sym)
	sq := MulMat(sqrt, sqrt)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !almostEqual(sq[i][j], sym[i][j]) {
				t.Errorf("sqrt(sym)^2 != sym at [%d][%d]: got %f want %f", i, j, sq[i][j], sym[i][j])
			}
		}
	}
}

func TestSymSqrtFloorsNegativeEigenvalues(t *testing.T) {
	// A matrix with a tiny negative eigenvalue from roundoff should not
	// produce NaNs.
	sym := [3][3]float64{
		{1e-15, 0, 0},
		{0, -1e-14, 0},
		{0, 0, 1},
	}
	sqrt := SymInvSqrt3(sym)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.IsNaN(sqrt[i][j]) || math.IsInf(sqrt[i][j], 0) {
				t.Fatalf("SymInvSqrt3 produced non-finite value: %v", sqrt)
			}
		}
	}
}

func TestEigMult6IdentitySolve(t *testing.T) {
	var vecs [6][6]float64
	for i := 0; i < 6; i++ {
		vecs[i][i] = 1
	}
	einv := [6]float64{1, 1, 1, 1, 1, 1}
	b := [6]float64{1, 2, 3, 4, 5, 6}
	got := EigMult6(vecs, einv, b)
	for i := range b {
		if !almostEqual(got[i], b[i]) {
			t.Errorf("EigMult6 with identity eigenbasis and unit einv should be identity: got %v want %v", got, b)
		}
	}
}
