package icp

import (
	"math"
	"sort"
)

// rejectionStats holds the median-based thresholds computed from an
// unpruned pair list (spec.md §4.4), which double as the matcher
// parameters for the next iteration.
type rejectionStats struct {
	MaxDistance      float64
	NormDotThreshold float64
	MedDist          float64
	MedNormDot       float64
}

// rejectPairs computes median distance/normal-angle statistics from pairs,
// derives new thresholds, and prunes pairs failing them. ok is false when
// fewer than minPairs survive (spec.md §7 "insufficient correspondences").
func rejectPairs(pairs []PtPair, cfg Config) (kept []PtPair, stats rejectionStats, ok bool) {
	if len(pairs) == 0 {
		return nil, stats, false
	}

	dists := make([]float64, len(pairs))
	normDots := make([]float64, len(pairs))
	for i, p := range pairs {
		dists[i] = p.P1.Sub(p.P2).Norm()
		normDots[i] = p.N1.Dot(p.N2)
	}

	stats.MedDist = median(dists)
	stats.MedNormDot = median(normDots)
	stats.MaxDistance = cfg.DistThreshMult * stats.MedDist

	angle := math.Acos(clamp(stats.MedNormDot, -1, 1))
	thresh := math.Cos(cfg.NormDotThreshMult * angle)
	stats.NormDotThreshold = clamp(thresh, cfg.NormDotThreshMin, cfg.NormDotThreshMax)

	maxSqDist := stats.MaxDistance * stats.MaxDistance
	kept = make([]PtPair, 0, len(pairs))
	for i, p := range pairs {
		distSq := dists[i] * dists[i]
		if distSq > maxSqDist {
			continue
		}
		if normDots[i] < stats.NormDotThreshold {
			continue
		}
		kept = append(kept, p)
	}

	if len(kept) < cfg.MinPairs {
		return kept, stats, false
	}
	return kept, stats, true
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return 0.5 * (sorted[mid-1] + sorted[mid])
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// rescaleCDFIncrement adjusts cdfIncrement toward the desired sample count
// based on how many pairs actually survived rejection (spec.md §4.4).
func rescaleCDFIncrement(current float64, survivingPairs, desiredPairs int) float64 {
	if desiredPairs <= 0 {
		return current
	}
	return current * (float64(survivingPairs) / float64(desiredPairs))
}
