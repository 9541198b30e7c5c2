package pointset

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
)

// LoadXYZN reads a point cloud from the line-oriented "x y z nx ny nz [b]"
// text format used by this package: one vertex per line, whitespace
// separated, an optional trailing "1"/"0" boundary flag, blank lines and
// lines starting with '#' ignored. Files ending in .gz are transparently
// gzip-decompressed, mirroring the teacher's tolerance for compressed map
// snapshots.
func LoadXYZN(path string) (*Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening point cloud file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return DecodeXYZN(r)
}

// DecodeXYZN parses the .xyzn text format from an arbitrary reader.
func DecodeXYZN(r io.Reader) (*Cloud, error) {
	var positions, normals []r3.Vector
	var boundary []bool

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 6 && len(fields) != 7 {
			return nil, fmt.Errorf("pointset: line %d: expected 6 or 7 fields, got %d", lineNo, len(fields))
		}
		vals := make([]float64, 6)
		for i := 0; i < 6; i++ {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("pointset: line %d: parsing field %d: %w", lineNo, i, err)
			}
			vals[i] = v
		}
		positions = append(positions, r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]})
		normals = append(normals, r3.Vector{X: vals[3], Y: vals[4], Z: vals[5]})
		b := false
		if len(fields) == 7 {
			b = fields[6] == "1"
		}
		boundary = append(boundary, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("pointset: reading point cloud stream: %w", err)
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("pointset: no vertices parsed")
	}

	c := NewWithNormals(positions, normals)
	c.Boundary = boundary
	return c, nil
}

// SaveXYZN writes a Cloud to the .xyzn text format.
func SaveXYZN(path string, c *Cloud) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating point cloud file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := 0; i < c.Len(); i++ {
		p, n := c.Position(i), c.Normal(i)
		b := 0
		if c.IsBoundary(i) {
			b = 1
		}
		if _, err := fmt.Fprintf(w, "%g %g %g %g %g %g %d\n", p.X, p.Y, p.Z, n.X, n.Y, n.Z, b); err != nil {
			return fmt.Errorf("writing vertex %d: %w", i, err)
		}
	}
	return w.Flush()
}
