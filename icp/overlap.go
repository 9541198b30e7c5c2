package icp

import "github.com/kwv/icp3d/linalg"

// computeOverlaps fills o1[i]/o2[i] with 1.0 iff vertex i of set 1 (resp.
// set 2), transformed into the other set's local frame, both lies inside
// the other's dilated grid and finds a k-d tree hit within maxDistance²
// (spec.md §4.3). If maxDistance <= 0 on entry it is initialized to
// min(grid bbox sizes). Runs the two per-vertex loops in parallel.
func computeOverlaps(h1, h2 *setHandle, maxDistance float64) (o1, o2 []float64, usedMaxDistance float64) {
	if maxDistance <= 0 {
		b1, b2 := h1.Grid.BBoxSize(), h2.Grid.BBoxSize()
		maxDistance = min(b1, b2)
	}
	maxSqDist := maxDistance * maxDistance

	o1 = make([]float64, h1.Points.Len())
	o2 = make([]float64, h2.Points.Len())

	toH2Local := linalg.Compose(linalg.Inverse(h2.Xf), h1.Xf)
	toH1Local := linalg.Compose(linalg.Inverse(h1.Xf), h2.Xf)

	parallelFor(h1.Points.Len(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := toH2Local.Apply(h1.Points.Position(i))
			if !h2.Grid.Overlaps(p) {
				continue
			}
			if _, ok := h2.Tree.Nearest(p, maxSqDist); ok {
				o1[i] = 1.0
			}
		}
	})
	parallelFor(h2.Points.Len(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := toH1Local.Apply(h2.Points.Position(i))
			if !h1.Grid.Overlaps(p) {
				continue
			}
			if _, ok := h1.Tree.Nearest(p, maxSqDist); ok {
				o2[i] = 1.0
			}
		}
	})

	return o1, o2, maxDistance
}
