package pointset

import (
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/kwv/icp3d/kdtree"
	"github.com/kwv/icp3d/linalg"
)

// DefaultNormalNeighbors is the neighborhood size used by EstimateNormals
// when a caller does not need a different tradeoff between noise robustness
// (larger k) and feature sharpness (smaller k).
const DefaultNormalNeighbors = 16

// EstimateNormals computes a unit normal per point via local PCA: for each
// point, gather its k nearest neighbors, build their covariance matrix, and
// take the eigenvector of the smallest eigenvalue as the normal direction
// (the flattest local axis). Local PCA only determines a normal's axis, not
// its sign, so the raw per-point normals are then made consistent by
// propagateOrientation: starting from point 0 as the seed, each unoriented
// point, in index order, is flipped to agree with its nearest
// already-oriented neighbor, until every normal has been visited.
func EstimateNormals(points []r3.Vector, k int) ([]r3.Vector, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("pointset: need at least 3 points to estimate normals, got %d", len(points))
	}
	if k < 3 {
		k = 3
	}

	entries := make([]kdtree.Entry, len(points))
	for i, p := range points {
		entries[i] = kdtree.Entry{Pos: p, Index: i}
	}
	tree := kdtree.Build(entries)

	normals := make([]r3.Vector, len(points))
	for i, p := range points {
		neighbors := kNearest(tree, p, i, k)
		normals[i] = localNormal(p, neighbors)
	}
	return propagateOrientation(tree, points, normals), nil
}

// propagateOrientation makes a set of sign-ambiguous local normals globally
// consistent. Point 0 is taken as the seed; every other point is oriented,
// in index order, by flipping its normal to agree with the already-oriented
// neighbor the tree finds closest to it.
// This is the standard nearest-neighbor orientation propagation for
// PCA-estimated normals (Hoppe et al.), simplified from a minimum-spanning-
// tree traversal to a greedy nearest-oriented-neighbor query since the point
// sets ICP operates on are small enough for repeated tree queries to be
// cheap, matching kNearest's own tradeoff above.
func propagateOrientation(tree *kdtree.Tree, points, normals []r3.Vector) []r3.Vector {
	n := len(points)
	out := make([]r3.Vector, n)
	copy(out, normals)
	if n == 0 {
		return out
	}

	oriented := make([]bool, n)
	oriented[0] = true
	remaining := n - 1

	for remaining > 0 {
		progressed := false
		for i := 0; i < n; i++ {
			if oriented[i] {
				continue
			}
			pred := func(e kdtree.Entry) bool { return oriented[e.Index] }
			e, ok := tree.NearestPred(points[i], 1e30, pred)
			if !ok {
				continue
			}
			if out[i].Dot(out[e.Index]) < 0 {
				out[i] = out[i].Mul(-1)
			}
			oriented[i] = true
			remaining--
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return out
}

// kNearest collects up to k neighbors of point i (excluding i itself) by
// repeatedly querying the tree and excluding indices already taken. The
// point sets ICP operates on are small enough (thousands of vertices) that
// this O(k) re-query approach, grounded on the same kd-tree collaborator
// the matcher uses, is simpler than maintaining a separate k-NN heap type.
func kNearest(tree *kdtree.Tree, query r3.Vector, selfIdx, k int) []r3.Vector {
	taken := make(map[int]bool, k+1)
	taken[selfIdx] = true
	out := make([]r3.Vector, 0, k)
	for len(out) < k && len(taken) < tree.Len() {
		pred := func(e kdtree.Entry) bool { return !taken[e.Index] }
		e, ok := tree.NearestPred(query, 1e30, pred)
		if !ok {
			break
		}
		taken[e.Index] = true
		out = append(out, e.Pos)
	}
	return out
}

func localNormal(center r3.Vector, neighbors []r3.Vector) r3.Vector {
	if len(neighbors) < 3 {
		return r3.Vector{X: 0, Y: 0, Z: 1}
	}
	all := append([]r3.Vector{center}, neighbors...)
	centroid := r3.Vector{}
	for _, p := range all {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Mul(1 / float64(len(all)))

	var cov [3][3]float64
	for _, p := range all {
		d := p.Sub(centroid)
		cov = linalg.AddMat(cov, linalg.OuterProduct(d, d))
	}
	cov = linalg.ScaleMat(cov, 1/float64(len(all)))

	vecs, _ := linalg.Eigen3(linalg.Symmetrize3(cov))
	// Ascending eigenvalues: column 0 is the smallest, the flattest local
	// direction, i.e. the surface normal.
	n := r3.Vector{X: vecs[0][0], Y: vecs[1][0], Z: vecs[2][0]}
	if l := n.Norm(); l > 1e-15 {
		return n.Mul(1 / l)
	}
	return r3.Vector{X: 0, Y: 0, Z: 1}
}
