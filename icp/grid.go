package icp

import "github.com/golang/geo/r3"

// gridDim is the per-axis cell count of the coarse occupancy grid (16^3 =
// 4096 cells, spec.md §2/§4.1).
const gridDim = 16
const gridCells = gridDim * gridDim * gridDim

// Grid is a 16^3 dilated occupancy grid over one point set's native
// coordinates, used to cheaply reject a query point that cannot possibly
// overlap the set before paying for a k-d tree lookup.
type Grid struct {
	min      r3.Vector
	scale    float64 // cells per unit length; 16 / max(dx,dy,dz)
	occupied [gridCells]bool
}

// BuildGrid computes the bounding box of points, marks the cell containing
// each point, then dilates: a cell is set in the result iff any of its 27
// neighbors (including itself, indices clamped to the grid) was marked in
// the undilated grid.
func BuildGrid(points []r3.Vector) *Grid {
	if len(points) == 0 {
		return &Grid{scale: 1}
	}
	min, max := points[0], points[0]
	for _, p := range points[1:] {
		min = componentMin(min, p)
		max = componentMax(max, p)
	}
	dx, dy, dz := max.X-min.X, max.Y-min.Y, max.Z-min.Z
	span := dx
	if dy > span {
		span = dy
	}
	if dz > span {
		span = dz
	}
	if span < 1e-12 {
		span = 1e-12
	}

	g := &Grid{min: min, scale: float64(gridDim) / span}

	var raw [gridCells]bool
	for _, p := range points {
		ix, iy, iz := g.cellIndex(p)
		raw[cellOffset(ix, iy, iz)] = true
	}

	// Dilation is symmetric (the 27-neighbor kernel is its own reflection),
	// so "mark every neighbor of a raw-occupied cell" is equivalent to "a
	// cell is occupied iff any of its neighbors is raw-occupied" — the
	// latter form assigns each worker a disjoint range of output cells with
	// only read-only access to raw, letting the 4096-cell dilation
	// (spec.md §5) run through parallelFor like overlap.go's per-vertex
	// loops rather than needing per-write synchronization.
	parallelFor(gridCells, func(lo, hi int) {
		for c := lo; c < hi; c++ {
			x, y, z := decodeCell(c)
			g.occupied[c] = neighborsOccupied(&raw, x, y, z)
		}
	})
	return g
}

func decodeCell(c int) (x, y, z int) {
	x = c / (gridDim * gridDim)
	rem := c % (gridDim * gridDim)
	y = rem / gridDim
	z = rem % gridDim
	return
}

func neighborsOccupied(raw *[gridCells]bool, x, y, z int) bool {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				nx, ny, nz := clampCell(x+dx), clampCell(y+dy), clampCell(z+dz)
				if raw[cellOffset(nx, ny, nz)] {
					return true
				}
			}
		}
	}
	return false
}

func clampCell(i int) int {
	if i < 0 {
		return 0
	}
	if i >= gridDim {
		return gridDim - 1
	}
	return i
}

func cellOffset(x, y, z int) int {
	return (x*gridDim+y)*gridDim + z
}

func (g *Grid) cellIndex(p r3.Vector) (int, int, int) {
	ix := clampCell(int((p.X - g.min.X) * g.scale))
	iy := clampCell(int((p.Y - g.min.Y) * g.scale))
	iz := clampCell(int((p.Z - g.min.Z) * g.scale))
	return ix, iy, iz
}

// Overlaps reports whether p lies inside the grid's bounding box in a
// dilated-occupied cell. Points outside the bounding box always return
// false, per spec.md §4.1.
func (g *Grid) Overlaps(p r3.Vector) bool {
	if g.scale <= 0 {
		return false
	}
	span := float64(gridDim) / g.scale
	max := g.min.Add(r3.Vector{X: span, Y: span, Z: span})
	if p.X < g.min.X || p.Y < g.min.Y || p.Z < g.min.Z {
		return false
	}
	if p.X > max.X || p.Y > max.Y || p.Z > max.Z {
		return false
	}
	ix, iy, iz := g.cellIndex(p)
	return g.occupied[cellOffset(ix, iy, iz)]
}

// BBoxSize returns the grid's bounding-box span along its longest axis (the
// same span used to derive scale), used as the fallback maxdist
// when the caller passes 0 (spec.md §4.7 step 2).
func (g *Grid) BBoxSize() float64 {
	if g.scale <= 0 {
		return 0
	}
	return float64(gridDim) / g.scale
}

func componentMin(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)}
}

func componentMax(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
