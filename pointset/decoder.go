package pointset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/golang/geo/r3"
)

// CloudFile is the JSON schema for a point cloud, generalizing the
// teacher's flat map-export shape to 3D point-cloud vertices.
type CloudFile struct {
	Metadata CloudMetadata `json:"metadata"`
	Vertices []VertexJSON  `json:"vertices"`
}

// CloudMetadata carries provenance the CLI reports back but the alignment
// core never inspects.
type CloudMetadata struct {
	Source      string `json:"source,omitempty"`
	PointCloud  bool   `json:"pointCloud"`
	GeneratedAt string `json:"generatedAt,omitempty"`
}

// VertexJSON is one vertex entry: position, normal, and an optional
// boundary flag.
type VertexJSON struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	NX       float64 `json:"nx"`
	NY       float64 `json:"ny"`
	NZ       float64 `json:"nz"`
	Boundary bool    `json:"boundary,omitempty"`
}

// ParseCloudFile reads and parses a CloudFile JSON document from disk.
func ParseCloudFile(path string) (*Cloud, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading point cloud JSON: %w", err)
	}
	return ParseCloudJSON(data)
}

// ParseCloudJSON parses CloudFile JSON data into a Cloud.
func ParseCloudJSON(data []byte) (*Cloud, error) {
	var cf CloudFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing point cloud JSON: %w", err)
	}
	if len(cf.Vertices) == 0 {
		return nil, fmt.Errorf("pointset: point cloud JSON has no vertices")
	}

	positions := make([]r3.Vector, len(cf.Vertices))
	normals := make([]r3.Vector, len(cf.Vertices))
	boundary := make([]bool, len(cf.Vertices))
	for i, v := range cf.Vertices {
		positions[i] = r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
		normals[i] = r3.Vector{X: v.NX, Y: v.NY, Z: v.NZ}
		boundary[i] = v.Boundary
	}

	c := NewWithNormals(positions, normals)
	c.Boundary = boundary
	c.PointCloud = cf.Metadata.PointCloud
	return c, nil
}

// EncodeCloudJSON serializes a Cloud into the CloudFile JSON schema.
func EncodeCloudJSON(c *Cloud, source string) ([]byte, error) {
	cf := CloudFile{
		Metadata: CloudMetadata{Source: source, PointCloud: c.IsPointCloud()},
		Vertices: make([]VertexJSON, c.Len()),
	}
	for i := 0; i < c.Len(); i++ {
		p, n := c.Position(i), c.Normal(i)
		cf.Vertices[i] = VertexJSON{
			X: p.X, Y: p.Y, Z: p.Z,
			NX: n.X, NY: n.Y, NZ: n.Z,
			Boundary: c.IsBoundary(i),
		}
	}
	out, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling point cloud JSON: %w", err)
	}
	return out, nil
}
