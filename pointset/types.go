// Package pointset provides the point-set container the ICP core treats as
// an external collaborator: vertex positions and normals, an optional
// boundary predicate, the "is point cloud" flag, and normal
// estimation/loading utilities layered on top.
package pointset

import "github.com/golang/geo/r3"

// Set is the narrow contract the ICP core consumes: vertex count, per-vertex
// position and normal, an optional boundary predicate, and whether the set
// carries no face/connectivity structure (a raw point cloud).
type Set interface {
	Len() int
	Position(i int) r3.Vector
	Normal(i int) r3.Vector
	IsBoundary(i int) bool
	IsPointCloud() bool
	EnsureNormals() error
}

// Cloud is the concrete Set implementation: a flat array of vertices, each
// with a position, a normal, and a boundary flag.
type Cloud struct {
	Positions   []r3.Vector
	Normals     []r3.Vector
	Boundary    []bool
	PointCloud  bool
	normalsDone bool
}

// New builds a Cloud from positions with zero normals, marking it a raw
// point cloud (no connectivity, so EnsureNormals must be called before it is
// used with normal-compatibility gating).
func New(positions []r3.Vector) *Cloud {
	return &Cloud{
		Positions:  positions,
		Normals:    make([]r3.Vector, len(positions)),
		Boundary:   make([]bool, len(positions)),
		PointCloud: true,
	}
}

// NewWithNormals builds a Cloud from positions and pre-computed normals
// (e.g. from a mesh with real connectivity, so PointCloud is false).
func NewWithNormals(positions, normals []r3.Vector) *Cloud {
	if len(positions) != len(normals) {
		panic("pointset: positions and normals length mismatch")
	}
	c := &Cloud{
		Positions:   positions,
		Normals:     normals,
		Boundary:    make([]bool, len(positions)),
		PointCloud:  false,
		normalsDone: true,
	}
	return c
}

func (c *Cloud) Len() int { return len(c.Positions) }

func (c *Cloud) Position(i int) r3.Vector { return c.Positions[i] }

func (c *Cloud) Normal(i int) r3.Vector { return c.Normals[i] }

func (c *Cloud) IsBoundary(i int) bool {
	if i >= len(c.Boundary) {
		return false
	}
	return c.Boundary[i]
}

func (c *Cloud) IsPointCloud() bool { return c.PointCloud }

// EnsureNormals estimates normals via local PCA if they have not already
// been supplied or computed. Safe to call repeatedly; a no-op after the
// first successful call.
func (c *Cloud) EnsureNormals() error {
	if c.normalsDone {
		return nil
	}
	normals, err := EstimateNormals(c.Positions, DefaultNormalNeighbors)
	if err != nil {
		return err
	}
	c.Normals = normals
	c.normalsDone = true
	return nil
}

// MarkBoundary flags vertex indices as lying on the set's boundary, for
// callers that can derive boundary information externally (e.g. from mesh
// connectivity not modeled by Cloud itself).
func (c *Cloud) MarkBoundary(indices []int) {
	for _, i := range indices {
		if i >= 0 && i < len(c.Boundary) {
			c.Boundary[i] = true
		}
	}
}
