package icp

import (
	"math/rand"
	"sort"
)

// BuildCDF normalizes weights into a non-decreasing cumulative distribution
// whose last element is exactly 1.0 (spec.md §3). Returns ok=false if the
// weights sum to (near) zero, the "zero overlap" failure condition of
// spec.md §4.6/§7.
func BuildCDF(weights []float64) (cdf []float64, ok bool) {
	cdf = make([]float64, len(weights))
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum < 1e-15 {
		return cdf, false
	}
	var running float64
	for i, w := range weights {
		running += w
		cdf[i] = running / sum
	}
	if len(cdf) > 0 {
		cdf[len(cdf)-1] = 1.0
	}
	return cdf, true
}

// UniformWeights returns an all-ones weight buffer of length n.
func UniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0
	}
	return w
}

// cdfIndex finds the smallest index i with cdf[i] > value via binary
// search (spec.md §4.2 step 1: "smallest index i with cdf[i] > currentCdfValue").
func cdfIndex(cdf []float64, value float64) int {
	i := sort.Search(len(cdf), func(i int) bool { return cdf[i] > value })
	if i >= len(cdf) {
		i = len(cdf) - 1
	}
	return i
}

// sampleIndices draws indices from cdf at fixed spacing increment, starting
// from a uniform random offset in [0, increment), until the running value
// exceeds 1.0 (spec.md §4.2, GLOSSARY "CDF sampling"). Yields roughly
// 1/increment samples, weighted by the original density.
func sampleIndices(cdf []float64, increment float64, rng *rand.Rand) []int {
	if len(cdf) == 0 || increment <= 0 {
		return nil
	}
	var indices []int
	value := rng.Float64() * increment
	for value < 1.0 {
		indices = append(indices, cdfIndex(cdf, value))
		value += increment
	}
	return indices
}
