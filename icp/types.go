// Package icp implements the Iterative Closest Point core: correspondence
// generation, median-based adaptive outlier rejection, symmetric
// point-to-plane alignment with Huber-weighted IRLS, importance-sampling
// reweighting, and the iteration controller that ties them together.
//
// The point-set and k-d tree collaborators are consumed through the narrow
// interfaces below rather than imported concretely, so the core can be
// tested against fakes independent of the pointset/kdtree packages that
// satisfy them in production. Linear algebra comes directly from the linalg
// package.
package icp

import (
	"github.com/golang/geo/r3"

	"github.com/kwv/icp3d/kdtree"
	"github.com/kwv/icp3d/linalg"
)

// XformType selects the class of transform the aligner solves for.
type XformType int

const (
	Translation XformType = iota
	Rigid
	Similarity
	Affine
)

func (x XformType) String() string {
	switch x {
	case Translation:
		return "translation"
	case Rigid:
		return "rigid"
	case Similarity:
		return "similarity"
	case Affine:
		return "affine"
	default:
		return "unknown"
	}
}

// FailureSentinel is the negative RMS value Align returns when an iteration
// fails (insufficient correspondences, zero overlap). It is never a Go
// error: callers check `rms < 0` and discard the mutated transform.
const FailureSentinel = -1.0

// PointSet is the mesh/point-cloud contract the core consumes: vertex
// count, per-vertex position and normal, an optional boundary predicate,
// whether the set has no face/connectivity structure, and a capability to
// lazily compute normals. `*pointset.Cloud` satisfies this interface.
type PointSet interface {
	Len() int
	Position(i int) r3.Vector
	Normal(i int) r3.Vector
	IsBoundary(i int) bool
	IsPointCloud() bool
	EnsureNormals() error
}

// KDTree is the nearest-neighbor contract the matcher and overlap
// estimator consume. `*kdtree.Tree` satisfies this interface.
type KDTree interface {
	Nearest(query r3.Vector, maxSqDist float64) (kdtree.Entry, bool)
	NearestPred(query r3.Vector, maxSqDist float64, pred kdtree.Predicate) (kdtree.Entry, bool)
}

// PtPair is a correspondence between the two point sets in world
// coordinates, after applying each set's current transform. n2 is oriented
// so that n1.Dot(n2) >= 0.
type PtPair struct {
	P1, N1 r3.Vector
	P2, N2 r3.Vector
}

// setHandle bundles one point set with the transform, grid, and k-d tree
// used to place it in world space during an alignment call. Both "1" and
// "2" slots use this shape; role "1" is the fixed reference throughout a
// call, role "2" is the one being refined.
type setHandle struct {
	Points       PointSet
	Xf           linalg.Transform
	Tree         KDTree
	Grid         *Grid
	Weights      []float64
	CDF          []float64
	cdfIncrement float64
}
