package icp

import (
	"math/rand"
	"testing"
)

func TestBuildCDFIsNonDecreasingAndEndsAtOne(t *testing.T) {
	weights := []float64{1, 0, 3, 2, 0.5}
	cdf, ok := BuildCDF(weights)
	if !ok {
		t.Fatal("expected BuildCDF to succeed on positive-sum weights")
	}
	for i := 1; i < len(cdf); i++ {
		if cdf[i] < cdf[i-1] {
			t.Fatalf("CDF not non-decreasing at %d: %v", i, cdf)
		}
	}
	if cdf[len(cdf)-1] != 1.0 {
		t.Errorf("CDF must end exactly at 1.0, got %v", cdf[len(cdf)-1])
	}
}

func TestBuildCDFZeroWeightsFails(t *testing.T) {
	_, ok := BuildCDF([]float64{0, 0, 0})
	if ok {
		t.Error("expected BuildCDF to fail when all weights are zero")
	}
}

func TestCDFIndexFindsSmallestExceeding(t *testing.T) {
	cdf := []float64{0.2, 0.5, 0.5, 1.0}
	if got := cdfIndex(cdf, 0.1); got != 0 {
		t.Errorf("cdfIndex(0.1) = %d, want 0", got)
	}
	if got := cdfIndex(cdf, 0.5); got != 3 {
		t.Errorf("cdfIndex(0.5) = %d, want 3 (first strictly greater)", got)
	}
	if got := cdfIndex(cdf, 0.99); got != 3 {
		t.Errorf("cdfIndex(0.99) = %d, want 3", got)
	}
}

func TestSampleIndicesCountMatchesIncrement(t *testing.T) {
	cdf, _ := BuildCDF(UniformWeights(100))
	rng := rand.New(rand.NewSource(42))
	indices := sampleIndices(cdf, 0.01, rng)
	// Roughly 1/increment samples; allow generous slack for the random offset.
	if len(indices) < 80 || len(indices) > 120 {
		t.Errorf("got %d samples, want roughly 100", len(indices))
	}
	for _, i := range indices {
		if i < 0 || i >= len(cdf) {
			t.Fatalf("sample index %d out of range", i)
		}
	}
}
