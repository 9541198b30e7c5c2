package icp

import (
	"math/rand"

	"github.com/kwv/icp3d/kdtree"
	"github.com/kwv/icp3d/linalg"
)

// matchParams bundles the arguments to selectAndMatch (spec.md §4.2), one
// direction of the symmetric bidirectional match.
type matchParams struct {
	Source, Target PointSet
	XfSource       linalg.Transform
	XfTarget       linalg.Transform
	TargetTree     KDTree
	CDF            []float64
	CDFIncrement   float64
	MaxDistance    float64
	NormDotThresh  float64
	FlipOrder      bool
	RejectBoundary bool
	UseNormCompat  bool
	RNG            *rand.Rand
}

// selectAndMatch draws samples from p.CDF at spacing p.CDFIncrement,
// transforms each into the target's local frame, queries the target k-d
// tree, and appends surviving correspondences to out. Correspondences are
// emitted in world coordinates (each side's own current transform applied),
// with FlipOrder controlling which side lands in the PtPair's "1" slot so
// the reference set is always slot 1 regardless of match direction.
func selectAndMatch(p matchParams, out []PtPair) []PtPair {
	indices := sampleIndices(p.CDF, p.CDFIncrement, p.RNG)
	if len(indices) == 0 {
		return out
	}

	// Maps a point/normal in source-local coordinates into the target's
	// local coordinates, so the (immutable, once-built) target k-d tree
	// never needs to be rebuilt as the target's own transform changes.
	toTargetLocal := linalg.Compose(linalg.Inverse(p.XfTarget), p.XfSource)

	maxSqDist := p.MaxDistance * p.MaxDistance
	normalsUsable := p.UseNormCompat && !p.Source.IsPointCloud() && !p.Target.IsPointCloud()

	for _, i := range indices {
		srcLocalPos := p.Source.Position(i)
		srcLocalNormal := p.Source.Normal(i)

		targetLocalPos := toTargetLocal.Apply(srcLocalPos)
		targetLocalNormal := toTargetLocal.ApplyNormal(srcLocalNormal)

		var pred kdtree.Predicate
		if normalsUsable {
			queryNormal := targetLocalNormal
			pred = func(e kdtree.Entry) bool {
				return queryNormal.Dot(e.Normal) > p.NormDotThresh
			}
		}

		match, ok := p.TargetTree.NearestPred(targetLocalPos, maxSqDist, pred)
		if !ok {
			continue
		}
		if p.RejectBoundary && p.Target.IsBoundary(match.Index) {
			continue
		}

		worldP1 := p.XfSource.Apply(srcLocalPos)
		worldN1 := p.XfSource.ApplyNormal(srcLocalNormal)
		worldP2 := p.XfTarget.Apply(match.Pos)
		worldN2 := p.XfTarget.ApplyNormal(match.Normal)
		if worldN1.Dot(worldN2) < 0 {
			worldN2 = worldN2.Mul(-1)
		}

		pair := PtPair{P1: worldP1, N1: worldN1, P2: worldP2, N2: worldN2}
		if p.FlipOrder {
			pair = PtPair{P1: worldP2, N1: worldN2, P2: worldP1, N2: worldN1}
		}
		out = append(out, pair)
	}
	return out
}
