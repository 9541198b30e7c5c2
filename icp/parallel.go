package icp

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelChunks splits [0,n) into disjoint contiguous ranges, one per
// worker, capped at GOMAXPROCS workers (spec.md §5: "farms out data-parallel
// loops to a worker pool ... partition disjoint output indices"). fn is
// called once per chunk with its [lo,hi) bounds; errors are impossible in
// these loops so errgroup is used purely for its WaitGroup-with-panic-safety
// semantics, matching how the pack's other concurrent repos (via
// golang.org/x/sync) fan out CPU-bound work.
func parallelFor(n int, fn func(lo, hi int)) {
	if n == 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		start := start
		end := start + chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}

// parallelSum runs fn(lo,hi) -> partial float64 across chunks of [0,n) and
// combines the partial sums serially at the end, the associative-reduction
// pattern spec.md §5 requires for parallel loops with a scalar reduction.
func parallelSum(n int, fn func(lo, hi int) float64) float64 {
	if n == 0 {
		return 0
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return fn(0, n)
	}

	chunk := (n + workers - 1) / workers
	results := make([]float64, 0, workers)
	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		start := start
		end := start + chunk
		if end > n {
			end = n
		}
		slot := len(results)
		results = append(results, 0)
		g.Go(func() error {
			results[slot] = fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
	var total float64
	for _, p := range results {
		total += p
	}
	return total
}
