package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// eigenValueFloor guards matrix-square-root reconstruction against slightly
// negative eigenvalues produced by floating-point roundoff on a
// theoretically PSD covariance matrix.
const eigenValueFloor = 1e-12

// Symmetrize3 averages a 3x3 matrix with its transpose, guarding
// accumulated asymmetry before eigendecomposition.
func Symmetrize3(m [3][3]float64) [3][3]float64 {
	return ScaleMat(AddMat(m, Transpose(m)), 0.5)
}

// Eigen3 factorizes a symmetric 3x3 matrix. Eigenvalues are returned in
// ascending order (gonum's convention); vecs[:, j] is the eigenvector for
// vals[j].
func Eigen3(sym [3][3]float64) (vecs [3][3]float64, vals [3]float64) {
	data := []float64{
		sym[0][0], sym[0][1], sym[0][2],
		sym[1][1], sym[1][2],
		sym[2][2],
	}
	symDense := mat.NewSymDense(3, nil)
	symDense.SetSym(0, 0, data[0])
	symDense.SetSym(0, 1, data[1])
	symDense.SetSym(0, 2, data[2])
	symDense.SetSym(1, 1, data[3])
	symDense.SetSym(1, 2, data[4])
	symDense.SetSym(2, 2, data[5])

	var eig mat.EigenSym
	if !eig.Factorize(symDense, true) {
		return Identity().M, [3]float64{}
	}
	rawVals := eig.Values(nil)
	var vd mat.Dense
	eig.VectorsTo(&vd)

	for i := 0; i < 3; i++ {
		vals[i] = rawVals[i]
		for j := 0; j < 3; j++ {
			vecs[j][i] = vd.At(j, i)
		}
	}
	return vecs, vals
}

// Eigen6 factorizes a symmetric 6x6 matrix analogously to Eigen3.
func Eigen6(sym [6][6]float64) (vecs [6][6]float64, vals [6]float64) {
	symDense := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		for j := i; j < 6; j++ {
			symDense.SetSym(i, j, sym[i][j])
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(symDense, true) {
		for i := 0; i < 6; i++ {
			vecs[i][i] = 1
		}
		return vecs, vals
	}
	rawVals := eig.Values(nil)
	var vd mat.Dense
	eig.VectorsTo(&vd)

	for i := 0; i < 6; i++ {
		vals[i] = rawVals[i]
		for j := 0; j < 6; j++ {
			vecs[j][i] = vd.At(j, i)
		}
	}
	return vecs, vals
}

// InvertEigenvalues6 turns eigenvalues into their reciprocals, treating a
// (near-)zero eigenvalue as an unresolved direction (maps to 0, not +Inf) so
// EigMult6 drops that direction's component of b rather than blowing up.
func InvertEigenvalues6(vals [6]float64) (einv [6]float64) {
	for i, v := range vals {
		if math.Abs(v) < 1e-9 {
			einv[i] = 0
			continue
		}
		einv[i] = 1 / v
	}
	return einv
}

// EigMult6 rotates b into the eigenbasis given by vecs, scales by einv, and
// rotates back: returns V * diag(einv) * V^T * b. This solves the
// regularized normal equations (spec's Aligner).
func EigMult6(vecs [6][6]float64, einv [6]float64, b [6]float64) [6]float64 {
	var proj [6]float64
	for j := 0; j < 6; j++ {
		var sum float64
		for i := 0; i < 6; i++ {
			sum += vecs[i][j] * b[i]
		}
		proj[j] = sum * einv[j]
	}
	var out [6]float64
	for i := 0; i < 6; i++ {
		var sum float64
		for j := 0; j < 6; j++ {
			sum += vecs[i][j] * proj[j]
		}
		out[i] = sum
	}
	return out
}

// SymSqrt3 reconstructs V*diag(sqrt(max(lambda,floor)))*V^T for a symmetric
// 3x3 matrix, per spec's guard against negative eigenvalues from
// floating-point covariance roundoff.
func SymSqrt3(sym [3][3]float64) [3][3]float64 {
	vecs, vals := Eigen3(sym)
	return reconstruct3(vecs, vals, func(l float64) float64 {
		if l < eigenValueFloor {
			l = eigenValueFloor
		}
		return math.Sqrt(l)
	})
}

// SymInvSqrt3 reconstructs V*diag(1/sqrt(max(lambda,floor)))*V^T.
func SymInvSqrt3(sym [3][3]float64) [3][3]float64 {
	vecs, vals := Eigen3(sym)
	return reconstruct3(vecs, vals, func(l float64) float64 {
		if l < eigenValueFloor {
			l = eigenValueFloor
		}
		return 1 / math.Sqrt(l)
	})
}

func reconstruct3(vecs [3][3]float64, vals [3]float64, f func(float64) float64) [3][3]float64 {
	var d [3][3]float64
	for i := 0; i < 3; i++ {
		d[i][i] = f(vals[i])
	}
	return MulMat(MulMat(vecs, d), Transpose(vecs))
}
