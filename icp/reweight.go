package icp

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/kwv/icp3d/linalg"
)

// reweight recomputes sampling scores for one point set from the
// eigenbasis of the most recent 6x6 alignment solve (spec.md §4.6): points
// lying along a poorly-resolved eigen-direction of the current linear
// system are over-sampled next round. Returns per-vertex scores (not yet
// normalized into a CDF) and their sum.
func reweight(points PointSet, xf linalg.Transform, centroid r3.Vector, scale float64, res alignResult, weights []float64) (scores []float64, sum float64) {
	n := points.Len()
	scores = make([]float64, n)

	var sqrtEinv [6]float64
	for j := 0; j < 6; j++ {
		sqrtEinv[j] = math.Sqrt(math.Max(res.Einv[j], 0))
	}

	sum = parallelSumIndexed(n, func(lo, hi int, partial []float64) float64 {
		var local float64
		for i := lo; i < hi; i++ {
			p := xf.Apply(points.Position(i)).Sub(centroid).Mul(2 * scale)
			nrm := xf.ApplyNormal(points.Normal(i))
			c := p.Cross(nrm)
			vec := [6]float64{c.X, c.Y, c.Z, nrm.X, nrm.Y, nrm.Z}

			var s float64
			for j := 0; j < 6; j++ {
				var proj float64
				for k := 0; k < 6; k++ {
					proj += res.Evec[k][j] * vec[k]
				}
				s += sqrtEinv[j] * proj * proj
			}
			s *= weights[i]
			partial[i] = s
			local += s
		}
		return local
	}, scores)
	return scores, sum
}

// parallelSumIndexed is parallelSum specialized to loops that also write a
// per-index output slice (out) alongside the scalar reduction, avoiding a
// second full pass over the data.
func parallelSumIndexed(n int, fn func(lo, hi int, out []float64) float64, out []float64) float64 {
	return parallelSum(n, func(lo, hi int) float64 {
		return fn(lo, hi, out)
	})
}

// reweightSets recomputes CDFs for both point sets. ok is false if either
// set's total score is (near) zero, spec.md §4.6's "no overlap" failure.
func reweightSets(h1, h2 *setHandle, res alignResult) (cdf1, cdf2 []float64, ok bool) {
	scores1, sum1 := reweight(h1.Points, h1.Xf, res.C1, res.Scale, res, h1.Weights)
	scores2, sum2 := reweight(h2.Points, h2.Xf, res.C2, res.Scale, res, h2.Weights)
	if sum1 < 1e-15 || sum2 < 1e-15 {
		return nil, nil, false
	}
	cdf1, ok1 := BuildCDF(scores1)
	cdf2, ok2 := BuildCDF(scores2)
	return cdf1, cdf2, ok1 && ok2
}
