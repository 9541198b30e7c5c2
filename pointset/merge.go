package pointset

import (
	"github.com/golang/geo/r3"
	"github.com/kwv/icp3d/linalg"
)

// Merge transforms b's vertices and normals into a's frame via xf and
// concatenates them onto a, returning a new Cloud. Used after a successful
// alignment to fold the moving set into the reference set's frame. The
// merged cloud is marked a point cloud whenever either input is, since
// concatenation does not preserve mesh connectivity.
func Merge(a, b Set, xf linalg.Transform) *Cloud {
	n := a.Len() + b.Len()
	positions := make([]r3.Vector, 0, n)
	normals := make([]r3.Vector, 0, n)
	boundary := make([]bool, 0, n)

	for i := 0; i < a.Len(); i++ {
		positions = append(positions, a.Position(i))
		normals = append(normals, a.Normal(i))
		boundary = append(boundary, a.IsBoundary(i))
	}
	for i := 0; i < b.Len(); i++ {
		positions = append(positions, xf.Apply(b.Position(i)))
		normals = append(normals, xf.ApplyNormal(b.Normal(i)))
		boundary = append(boundary, b.IsBoundary(i))
	}

	merged := NewWithNormals(positions, normals)
	merged.Boundary = boundary
	merged.PointCloud = a.IsPointCloud() || b.IsPointCloud()
	return merged
}
