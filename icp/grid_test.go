package icp

import (
	"testing"

	"github.com/golang/geo/r3"
)

func TestBuildGridOverlapsInsideBBox(t *testing.T) {
	points := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 1}}
	g := BuildGrid(points)
	if !g.Overlaps(r3.Vector{X: 0, Y: 0, Z: 0}) {
		t.Error("expected an input point's own cell to overlap")
	}
	if !g.Overlaps(r3.Vector{X: 0.1, Y: 0.1, Z: 0.1}) {
		t.Error("a point one dilated cell away from an input point should overlap")
	}
}

func TestBuildGridRejectsOutsideBBox(t *testing.T) {
	points := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 1}}
	g := BuildGrid(points)
	if g.Overlaps(r3.Vector{X: 100, Y: 100, Z: 100}) {
		t.Error("a point far outside the bounding box must not overlap")
	}
}

func TestBuildGridEmptyInput(t *testing.T) {
	g := BuildGrid(nil)
	if g.Overlaps(r3.Vector{}) {
		t.Error("an empty grid should never report an overlap")
	}
}

func TestBuildGridBBoxSize(t *testing.T) {
	points := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 2, Y: 1, Z: 0.5}}
	g := BuildGrid(points)
	if got := g.BBoxSize(); got < 1.99 || got > 2.01 {
		t.Errorf("BBoxSize() = %f, want ~2 (the longest axis span)", got)
	}
}
