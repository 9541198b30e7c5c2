// Package kdtree implements the k-d tree collaborator the ICP core consumes
// through a narrow nearest-neighbor interface: bounded-radius nearest query,
// optionally gated by a per-candidate predicate that can reject a node
// during descent (spec.md §6/§9). Structure follows the classic recursive
// median-split k-d tree, generalizing the pointerless cyclic-axis idea in
// the pack's mlnoga-nightlight kd-tree to a node-based tree that supports
// predicate-gated queries with sibling re-entry.
package kdtree

import (
	"sort"

	"github.com/golang/geo/r3"
)

// Entry is one indexed point stored in the tree. Index identifies which
// vertex of the caller's point set produced this entry, satisfying spec.md
// §9's requirement that a match be traceable back to a vertex index.
type Entry struct {
	Pos    r3.Vector
	Normal r3.Vector
	Index  int
}

// Predicate gates whether a candidate entry may be accepted as a match. The
// tree calls it during descent and re-enters sibling subtrees when the
// nearest raw candidate is rejected, per spec.md §9.
type Predicate func(Entry) bool

type node struct {
	entry       Entry
	axis        int
	left, right *node
}

// Tree is an immutable k-d tree over a fixed set of entries, built once and
// queried many times during an ICP call (spec.md §3 Lifecycle).
type Tree struct {
	root *node
	n    int
}

// Build constructs a balanced k-d tree from entries. The input slice is
// copied and reordered internally; the caller's slice is left untouched.
func Build(entries []Entry) *Tree {
	buf := make([]Entry, len(entries))
	copy(buf, entries)
	return &Tree{root: build(buf, 0), n: len(buf)}
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int { return t.n }

func build(entries []Entry, depth int) *node {
	if len(entries) == 0 {
		return nil
	}
	axis := depth % 3
	sort.Slice(entries, func(i, j int) bool {
		return axisValue(entries[i].Pos, axis) < axisValue(entries[j].Pos, axis)
	})
	mid := len(entries) / 2
	n := &node{entry: entries[mid], axis: axis}
	n.left = build(entries[:mid], depth+1)
	n.right = build(entries[mid+1:], depth+1)
	return n
}

func axisValue(p r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// Nearest finds the nearest entry to query within maxSqDist (squared
// distance), with no compatibility predicate.
func (t *Tree) Nearest(query r3.Vector, maxSqDist float64) (Entry, bool) {
	return t.NearestPred(query, maxSqDist, nil)
}

// NearestPred finds the nearest entry to query within maxSqDist whose entry
// satisfies pred (pred == nil accepts everything). Candidates that fail the
// predicate are skipped without shrinking the search radius, and the search
// continues into sibling subtrees as needed (spec.md §9).
func (t *Tree) NearestPred(query r3.Vector, maxSqDist float64, pred Predicate) (Entry, bool) {
	if t.root == nil {
		return Entry{}, false
	}
	best := searchState{bestDistSq: maxSqDist, pred: pred}
	t.root.search(query, &best)
	return best.entry, best.found
}

type searchState struct {
	entry      Entry
	found      bool
	bestDistSq float64
	pred       Predicate
}

func distSq(a, b r3.Vector) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

func (n *node) search(query r3.Vector, st *searchState) {
	if n == nil {
		return
	}
	d := distSq(query, n.entry.Pos)
	if d <= st.bestDistSq && (st.pred == nil || st.pred(n.entry)) {
		st.bestDistSq = d
		st.entry = n.entry
		st.found = true
	}

	diff := axisValue(query, n.axis) - axisValue(n.entry.Pos, n.axis)
	near, far := n.left, n.right
	if diff > 0 {
		near, far = n.right, n.left
	}

	near.search(query, st)
	// The far subtree can only hold a closer-or-equal accepted point if the
	// splitting plane itself is within the current search radius. This
	// bound uses only geometry, never the predicate, so a rejected nearest
	// candidate does not prematurely prune a farther-but-compatible one.
	if diff*diff <= st.bestDistSq {
		far.search(query, st)
	}
}
