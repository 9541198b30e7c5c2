package icp

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/kwv/icp3d/linalg"
)

// alignResult is what the aligner hands back to the controller: the
// incremental world-space transform to compose onto the running xf2, plus
// the eigenbasis of the 6x6 system (consumed by the importance reweighter
// every CDF_UPDATE_INTERVAL iterations, spec.md §4.6) and the RMS residual
// used for convergence tracking.
type alignResult struct {
	Increment linalg.Transform
	Evec      [6][6]float64
	Einv      [6]float64
	Scale     float64
	C1, C2    r3.Vector
	RMS       float64
}

// alignRigid solves the symmetric point-to-plane system of spec.md §4.5 and
// returns the incremental rigid transform (rotation + translation) that
// best explains the pair residuals.
func alignRigid(pairs []PtPair, cfg Config) alignResult {
	c1, c2 := pairCentroids(pairs)
	scale := pairScale(pairs, c1, c2)

	var A [6][6]float64
	var b [6]float64
	var sumSqResidual float64

	for _, pr := range pairs {
		p1 := pr.P1.Sub(c1).Mul(scale)
		p2 := pr.P2.Sub(c2).Mul(scale)
		n := pr.N1.Add(pr.N2).Mul(0.5)
		p := p1.Add(p2)
		d := p1.Sub(p2)
		ci := p.Cross(n)
		dn := d.Dot(n)

		xn := [6]float64{ci.X, ci.Y, ci.Z, n.X, n.Y, n.Z}
		w := cfg.Regularization / math.Max(math.Abs(dn), cfg.Regularization)

		xx := [6]float64{0, p.Z, -p.Y, 1, 0, 0}
		xy := [6]float64{-p.Z, 0, p.X, 0, 1, 0}
		xz := [6]float64{p.Y, -p.X, 0, 0, 0, 1}

		accumulateOuter(&A, xn, w)
		accumulateOuter(&A, xx, cfg.Regularization)
		accumulateOuter(&A, xy, cfg.Regularization)
		accumulateOuter(&A, xz, cfg.Regularization)

		for k := 0; k < 6; k++ {
			b[k] += w*dn*xn[k] + cfg.Regularization*(d.X*xx[k]+d.Y*xy[k]+d.Z*xz[k])
		}
		sumSqResidual += dn * dn
	}

	symmetrize6(&A)
	evec, vals := linalg.Eigen6(A)
	einv := linalg.InvertEigenvalues6(vals)
	x := linalg.EigMult6(evec, einv, b)

	rotVec := r3.Vector{X: x[0], Y: x[1], Z: x[2]}
	trans := r3.Vector{X: x[3], Y: x[4], Z: x[5]}

	rotNorm := rotVec.Norm()
	rotAngle := math.Atan(rotNorm)
	axis := r3.Vector{X: 0, Y: 0, Z: 1}
	if rotNorm > 1e-15 {
		axis = rotVec.Mul(1 / rotNorm)
	}
	trans = trans.Mul(math.Cos(rotAngle) / scale)

	rot := linalg.RotationAboutAxis(axis, rotAngle)
	inc := linalg.Translation(c2.Mul(-1))
	inc = linalg.Compose(rot, inc)
	inc = linalg.Compose(linalg.Translation(trans), inc)
	inc = linalg.Compose(rot, inc)
	inc = linalg.Compose(linalg.Translation(c1), inc)

	rms := 0.0
	if len(pairs) > 0 {
		rms = math.Sqrt(sumSqResidual / float64(len(pairs)))
	}

	return alignResult{Increment: inc, Evec: evec, Einv: einv, Scale: scale, C1: c1, C2: c2, RMS: rms}
}

// alignTranslation solves the 3-DoF translation-only system: correspondence
// residuals are centered on each set's pair-centroid (for conditioning),
// solved for a correction on top of the coarse centroid-difference
// alignment, then combined with that difference into the final offset.
func alignTranslation(pairs []PtPair, cfg Config) alignResult {
	c1, c2 := pairCentroids(pairs)

	var A [3][3]float64
	var b r3.Vector
	var sumSqResidual float64

	for _, pr := range pairs {
		p1 := pr.P1.Sub(c1)
		p2 := pr.P2.Sub(c2)
		n := pr.N1.Add(pr.N2).Mul(0.5)
		d := p1.Sub(p2)
		dn := d.Dot(n)

		A = linalg.AddMat(A, linalg.OuterProduct(n, n))
		b = b.Add(n.Mul(dn))
		sumSqResidual += dn * dn
	}
	reg := cfg.Regularization * float64(len(pairs))
	A[0][0] += reg
	A[1][1] += reg
	A[2][2] += reg

	solution := linalg.MulMatVec(linalg.Inverse3(A), b)
	offset := solution.Add(c1.Sub(c2))

	rms := 0.0
	if len(pairs) > 0 {
		rms = math.Sqrt(sumSqResidual / float64(len(pairs)))
	}

	return alignResult{Increment: linalg.Translation(offset), Scale: 1, C1: c1, C2: c2, RMS: rms}
}

// applyPostHocScale extends a rigid increment with a uniform scale factor
// derived from the ratio of the two sets' spread around their common
// centroid (spec.md §4.5 "Post-hoc scale").
func applyPostHocScale(inc linalg.Transform, pairs []PtPair) linalg.Transform {
	centroid, cov1, cov2 := commonCentroidAndCovariances(inc, pairs)
	_, vals1 := linalg.Eigen3(cov1)
	_, vals2 := linalg.Eigen3(cov2)
	sum1 := vals1[0] + vals1[1] + vals1[2]
	sum2 := vals2[0] + vals2[1] + vals2[2]
	if sum2 < 1e-15 {
		return inc
	}
	s := math.Sqrt(sum1 / sum2)

	scaleXf := linalg.Translation(centroid.Mul(-1))
	scaleXf = linalg.Compose(linalg.ScaleUniform(s), scaleXf)
	scaleXf = linalg.Compose(linalg.Translation(centroid), scaleXf)
	return linalg.Compose(scaleXf, inc)
}

// applyPostHocAffine extends a rigid increment with a full affine
// correction built from the eigen-reconstructed square roots of the two
// sets' covariance matrices (spec.md §4.5/§9).
func applyPostHocAffine(inc linalg.Transform, pairs []PtPair) linalg.Transform {
	centroid, cov1, cov2 := commonCentroidAndCovariances(inc, pairs)
	sqrt1 := linalg.SymSqrt3(linalg.Symmetrize3(cov1))
	invSqrt2 := linalg.SymInvSqrt3(linalg.Symmetrize3(cov2))

	affineXf := linalg.Translation(centroid.Mul(-1))
	affineXf = linalg.Compose(linalg.FromLinear(invSqrt2), affineXf)
	affineXf = linalg.Compose(linalg.FromLinear(sqrt1), affineXf)
	affineXf = linalg.Compose(linalg.Translation(centroid), affineXf)
	return linalg.Compose(affineXf, inc)
}

func commonCentroidAndCovariances(inc linalg.Transform, pairs []PtPair) (centroid r3.Vector, cov1, cov2 [3][3]float64) {
	c1, c2 := pairCentroids(pairs)
	centroid = c1.Add(inc.Apply(c2)).Mul(0.5)

	for _, pr := range pairs {
		d1 := pr.P1.Sub(centroid)
		d2 := inc.Apply(pr.P2).Sub(centroid)
		cov1 = linalg.AddMat(cov1, linalg.OuterProduct(d1, d1))
		cov2 = linalg.AddMat(cov2, linalg.OuterProduct(d2, d2))
	}
	if n := float64(len(pairs)); n > 0 {
		cov1 = linalg.ScaleMat(cov1, 1/n)
		cov2 = linalg.ScaleMat(cov2, 1/n)
	}
	return centroid, cov1, cov2
}

func pairCentroids(pairs []PtPair) (c1, c2 r3.Vector) {
	if len(pairs) == 0 {
		return c1, c2
	}
	for _, p := range pairs {
		c1 = c1.Add(p.P1)
		c2 = c2.Add(p.P2)
	}
	n := float64(len(pairs))
	return c1.Mul(1 / n), c2.Mul(1 / n)
}

// pairScale returns the reciprocal RMS distance of pair endpoints to their
// respective centroids, the normalization spec.md §4.5 applies before
// building the linearized rotation system.
func pairScale(pairs []PtPair, c1, c2 r3.Vector) float64 {
	if len(pairs) == 0 {
		return 1
	}
	var sumSq float64
	for _, p := range pairs {
		sumSq += p.P1.Sub(c1).Dot(p.P1.Sub(c1))
		sumSq += p.P2.Sub(c2).Dot(p.P2.Sub(c2))
	}
	rms := math.Sqrt(sumSq / float64(2*len(pairs)))
	if rms < 1e-15 {
		return 1
	}
	return 1 / rms
}

func accumulateOuter(A *[6][6]float64, x [6]float64, weight float64) {
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			A[i][j] += weight * x[i] * x[j]
		}
	}
}

func symmetrize6(A *[6][6]float64) {
	for i := 0; i < 6; i++ {
		for j := i + 1; j < 6; j++ {
			avg := 0.5 * (A[i][j] + A[j][i])
			A[i][j] = avg
			A[j][i] = avg
		}
	}
}
