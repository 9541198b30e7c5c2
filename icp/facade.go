package icp

import (
	"github.com/golang/geo/r3"
	"golang.org/x/sync/errgroup"

	"github.com/kwv/icp3d/kdtree"
	"github.com/kwv/icp3d/linalg"
)

// Align is the full-control entry point of spec.md §6: given two point
// sets and their current world transforms, refine xf2 in place so that the
// transformed set2 best aligns with set1 under xformType. Returns the RMS
// residual after the final iteration, or FailureSentinel on failure.
//
// tree1/tree2 and weights1/weights2 are optional: pass nil trees to have
// them built from the point sets, and nil (or wrong-length) weight
// pointers to have per-vertex weights synthesized from overlap indicators.
// A supplied weights slice is read-only and never mutated; a synthesized
// one is cleared (set to nil) before return, per spec.md §3's lifecycle.
//
// Structural failures (a point set that cannot produce normals) are folded
// into the same sentinel, since this signature — mirroring the ICP core's
// single float64 return exactly — has no channel for a Go error; callers
// that need to distinguish the two should call set.EnsureNormals()
// themselves before this call and handle its error separately.
func Align(
	set1, set2 PointSet,
	xf1 linalg.Transform, xf2 *linalg.Transform,
	tree1, tree2 KDTree,
	weights1, weights2 *[]float64,
	maxDistance float64,
	cfg Config,
	xformType XformType,
) float64 {
	if err := set1.EnsureNormals(); err != nil {
		return FailureSentinel
	}
	if err := set2.EnsureNormals(); err != nil {
		return FailureSentinel
	}
	if set1.Len() == 0 || set2.Len() == 0 {
		return FailureSentinel
	}

	// The two sets' grids and (when not already supplied) k-d trees are
	// independent of each other, so spec.md §5 calls out their construction
	// as a parallel region; each goroutine below only ever writes its own
	// variable, so there's nothing to synchronize beyond the final Wait.
	var grid1, grid2 *Grid
	var g errgroup.Group
	if tree1 == nil {
		g.Go(func() error { tree1 = kdtree.Build(buildEntries(set1)); return nil })
	}
	if tree2 == nil {
		g.Go(func() error { tree2 = kdtree.Build(buildEntries(set2)); return nil })
	}
	g.Go(func() error { grid1 = BuildGrid(positionsOf(set1)); return nil })
	g.Go(func() error { grid2 = BuildGrid(positionsOf(set2)); return nil })
	_ = g.Wait()

	if maxDistance <= 0 {
		maxDistance = min(grid1.BBoxSize(), grid2.BBoxSize())
	}

	w1, synth1 := resolveWeights(weights1, set1.Len())
	w2, synth2 := resolveWeights(weights2, set2.Len())

	cdf1, ok1 := BuildCDF(w1)
	cdf2, ok2 := BuildCDF(w2)
	if !ok1 || !ok2 {
		return FailureSentinel
	}

	h1 := &setHandle{Points: set1, Xf: xf1, Tree: tree1, Grid: grid1, Weights: w1, CDF: cdf1}
	h2 := &setHandle{Points: set2, Xf: *xf2, Tree: tree2, Grid: grid2, Weights: w2, CDF: cdf2}

	rms := runController(h1, h2, cfg, xformType, maxDistance, synth1, synth2)

	*xf2 = h2.Xf
	if synth1 && weights1 != nil {
		*weights1 = nil
	}
	if synth2 && weights2 != nil {
		*weights2 = nil
	}
	return rms
}

// AlignAuto is the common-case convenience wrapper: builds k-d trees and
// synthesizes weights internally.
func AlignAuto(set1, set2 PointSet, xf1 linalg.Transform, xf2 *linalg.Transform, maxDistance float64, cfg Config, xformType XformType) float64 {
	return Align(set1, set2, xf1, xf2, nil, nil, nil, nil, maxDistance, cfg, xformType)
}

// AlignWithTrees is the convenience wrapper for callers that already built
// k-d trees for both sets (e.g. reusing them across repeated alignment
// attempts with different initial transforms) but want weights synthesized.
func AlignWithTrees(set1, set2 PointSet, xf1 linalg.Transform, xf2 *linalg.Transform, tree1, tree2 KDTree, maxDistance float64, cfg Config, xformType XformType) float64 {
	return Align(set1, set2, xf1, xf2, tree1, tree2, nil, nil, maxDistance, cfg, xformType)
}

func resolveWeights(w *[]float64, n int) (weights []float64, synthesized bool) {
	if w != nil && len(*w) == n {
		return *w, false
	}
	return UniformWeights(n), true
}

func buildEntries(ps PointSet) []kdtree.Entry {
	entries := make([]kdtree.Entry, ps.Len())
	for i := 0; i < ps.Len(); i++ {
		entries[i] = kdtree.Entry{Pos: ps.Position(i), Normal: ps.Normal(i), Index: i}
	}
	return entries
}

func positionsOf(ps PointSet) []r3.Vector {
	positions := make([]r3.Vector, ps.Len())
	for i := 0; i < ps.Len(); i++ {
		positions[i] = ps.Position(i)
	}
	return positions
}
