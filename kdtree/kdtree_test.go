package kdtree

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

func gridEntries() []Entry {
	var entries []Entry
	idx := 0
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			for z := 0; z < 4; z++ {
				entries = append(entries, Entry{
					Pos:   r3.Vector{X: float64(x), Y: float64(y), Z: float64(z)},
					Index: idx,
				})
				idx++
			}
		}
	}
	return entries
}

func TestNearestFindsExactMatch(t *testing.T) {
	tree := Build(gridEntries())
	got, ok := tree.Nearest(r3.Vector{X: 2, Y: 2, Z: 2}, 1e9)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Pos != (r3.Vector{X: 2, Y: 2, Z: 2}) {
		t.Errorf("got %+v, want exact grid point", got.Pos)
	}
}

func TestNearestRespectsCutoff(t *testing.T) {
	tree := Build(gridEntries())
	_, ok := tree.Nearest(r3.Vector{X: 100, Y: 100, Z: 100}, 1.0)
	if ok {
		t.Error("expected no match beyond cutoff")
	}
}

func TestNearestPredicateSkipsRejectedAndBacktracks(t *testing.T) {
	tree := Build(gridEntries())
	query := r3.Vector{X: 2, Y: 2, Z: 2}

	// Reject the exact hit; the second-nearest accepted point should be
	// found instead, proving the search backtracks into siblings rather
	// than stopping at the first (rejected) candidate.
	pred := func(e Entry) bool {
		return e.Pos != query
	}
	got, ok := tree.NearestPred(query, 1e9, pred)
	if !ok {
		t.Fatal("expected a match after rejecting the exact hit")
	}
	if got.Pos == query {
		t.Fatal("predicate should have excluded the exact hit")
	}
	if distSq(got.Pos, query) > 1.01 {
		t.Errorf("expected nearest surviving neighbor at distance ~1, got %+v (d2=%f)", got.Pos, distSq(got.Pos, query))
	}
}

func TestNearestPredicateRejectAllReturnsNotFound(t *testing.T) {
	tree := Build(gridEntries())
	pred := func(Entry) bool { return false }
	_, ok := tree.NearestPred(r3.Vector{X: 1, Y: 1, Z: 1}, 1e9, pred)
	if ok {
		t.Error("expected no match when predicate rejects everything")
	}
}

func TestNearestOnEmptyTree(t *testing.T) {
	tree := Build(nil)
	_, ok := tree.Nearest(r3.Vector{}, 1e9)
	if ok {
		t.Error("expected no match on an empty tree")
	}
}

func TestNearestMatchesBruteForce(t *testing.T) {
	entries := []Entry{
		{Pos: r3.Vector{X: 1.3, Y: -2.1, Z: 0.4}, Index: 0},
		{Pos: r3.Vector{X: -4.0, Y: 5.0, Z: 1.0}, Index: 1},
		{Pos: r3.Vector{X: 0.0, Y: 0.0, Z: 0.0}, Index: 2},
		{Pos: r3.Vector{X: 3.3, Y: 3.3, Z: 3.3}, Index: 3},
		{Pos: r3.Vector{X: -1.0, Y: -1.0, Z: -1.0}, Index: 4},
		{Pos: r3.Vector{X: 10.0, Y: 0.0, Z: 0.0}, Index: 5},
	}
	tree := Build(entries)

	queries := []r3.Vector{
		{X: 1, Y: -2, Z: 0.5},
		{X: -3, Y: 4, Z: 1},
		{X: 5, Y: 5, Z: 5},
		{X: 0.1, Y: 0.1, Z: 0.1},
	}
	for _, q := range queries {
		want := math.MaxFloat64
		var wantIdx int
		for _, e := range entries {
			d := distSq(q, e.Pos)
			if d < want {
				want = d
				wantIdx = e.Index
			}
		}
		got, ok := tree.Nearest(q, 1e9)
		if !ok {
			t.Fatalf("query %+v: expected a match", q)
		}
		if got.Index != wantIdx {
			t.Errorf("query %+v: got index %d (d2=%f), want %d (d2=%f)", q, got.Index, distSq(q, got.Pos), wantIdx, want)
		}
	}
}
