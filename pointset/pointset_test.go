package pointset

import (
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/kwv/icp3d/linalg"
)

func TestCloudBasics(t *testing.T) {
	positions := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}}
	normals := []r3.Vector{{X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: 1}}
	c := NewWithNormals(positions, normals)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if c.IsPointCloud() {
		t.Error("cloud built with explicit normals should not be flagged as a point cloud")
	}
	if err := c.EnsureNormals(); err != nil {
		t.Fatalf("EnsureNormals: %v", err)
	}
	if c.Normal(0) != (r3.Vector{X: 0, Y: 0, Z: 1}) {
		t.Error("EnsureNormals should be a no-op when normals were already supplied")
	}
}

func TestNewMarksPointCloud(t *testing.T) {
	c := New([]r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}})
	if !c.IsPointCloud() {
		t.Error("New() should mark the cloud as a raw point cloud")
	}
}

func TestMarkBoundary(t *testing.T) {
	c := New(make([]r3.Vector, 5))
	c.MarkBoundary([]int{1, 3})
	for i := 0; i < 5; i++ {
		want := i == 1 || i == 3
		if c.IsBoundary(i) != want {
			t.Errorf("IsBoundary(%d) = %v, want %v", i, c.IsBoundary(i), want)
		}
	}
}

func planePoints(nx, ny int) []r3.Vector {
	var pts []r3.Vector
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			pts = append(pts, r3.Vector{X: float64(i) * 0.1, Y: float64(j) * 0.1, Z: 0})
		}
	}
	return pts
}

func TestEstimateNormalsRecoversPlaneNormal(t *testing.T) {
	pts := planePoints(10, 10)
	normals, err := EstimateNormals(pts, 8)
	if err != nil {
		t.Fatalf("EstimateNormals: %v", err)
	}
	for i, n := range normals {
		// Points lie in the z=0 plane, so the normal must be along +/- z.
		if math.Abs(math.Abs(n.Z)-1) > 1e-6 || math.Abs(n.X) > 1e-6 || math.Abs(n.Y) > 1e-6 {
			t.Fatalf("vertex %d: normal %+v is not aligned with z axis", i, n)
		}
	}
}

func TestEstimateNormalsRejectsTooFewPoints(t *testing.T) {
	_, err := EstimateNormals([]r3.Vector{{}, {}}, 8)
	if err == nil {
		t.Error("expected an error with fewer than 3 points")
	}
}

func TestEstimateNormalsOrientationIsConsistent(t *testing.T) {
	pts := planePoints(10, 10)
	normals, err := EstimateNormals(pts, 8)
	if err != nil {
		t.Fatalf("EstimateNormals: %v", err)
	}
	// Local PCA alone only fixes each normal's axis, not its sign; after
	// orientation propagation every normal on this flat, fully-connected
	// patch must agree with its neighbors' sign.
	for i, n := range normals {
		if n.Dot(normals[0]) < 0 {
			t.Errorf("vertex %d: normal %+v disagrees in sign with the seed normal %+v", i, n, normals[0])
		}
	}
}

func TestXYZNRoundTrip(t *testing.T) {
	data := "# comment\n0 0 0 0 0 1 0\n1 0 0 0 0 1 1\n\n0 1 0 0 0 1\n"
	c, err := DecodeXYZN(strings.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeXYZN: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	if !c.IsBoundary(1) {
		t.Error("vertex 1 should be flagged as boundary")
	}
	if c.IsBoundary(2) {
		t.Error("vertex 2 should default to non-boundary when the field is omitted")
	}
}

func TestDecodeXYZNRejectsMalformedLine(t *testing.T) {
	_, err := DecodeXYZN(strings.NewReader("0 0 0 0 0\n"))
	if err == nil {
		t.Error("expected an error for a line with too few fields")
	}
}

func TestCloudJSONRoundTrip(t *testing.T) {
	c := NewWithNormals(
		[]r3.Vector{{X: 1, Y: 2, Z: 3}},
		[]r3.Vector{{X: 0, Y: 0, Z: 1}},
	)
	c.PointCloud = true

	data, err := EncodeCloudJSON(c, "unit-test")
	if err != nil {
		t.Fatalf("EncodeCloudJSON: %v", err)
	}
	decoded, err := ParseCloudJSON(data)
	if err != nil {
		t.Fatalf("ParseCloudJSON: %v", err)
	}
	if decoded.Len() != 1 || decoded.Position(0) != c.Position(0) {
		t.Errorf("round trip mismatch: got %+v", decoded.Position(0))
	}
	if !decoded.IsPointCloud() {
		t.Error("PointCloud flag should survive the round trip")
	}
}

func TestMergeTransformsSecondSet(t *testing.T) {
	a := NewWithNormals([]r3.Vector{{X: 0, Y: 0, Z: 0}}, []r3.Vector{{X: 0, Y: 0, Z: 1}})
	b := NewWithNormals([]r3.Vector{{X: 1, Y: 0, Z: 0}}, []r3.Vector{{X: 1, Y: 0, Z: 0}})
	xf := linalg.Translation(r3.Vector{X: 5, Y: 0, Z: 0})

	merged := Merge(a, b, xf)
	if merged.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", merged.Len())
	}
	want := r3.Vector{X: 6, Y: 0, Z: 0}
	if merged.Position(1) != want {
		t.Errorf("merged second vertex = %+v, want %+v", merged.Position(1), want)
	}
}
