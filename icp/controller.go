package icp

import (
	"log"

	"github.com/kwv/icp3d/linalg"
)

// iterationOutcome is what one call to runIteration reports back to the
// controller: the updated matcher thresholds (which become next
// iteration's inputs), how many pairs survived rejection, the RMS
// residual, and whether the iteration succeeded at all.
type iterationOutcome struct {
	MaxDistance      float64
	NormDotThreshold float64
	SurvivingPairs   int
	RMS              float64
	OK               bool
}

// runIteration is the atomic unit of spec.md's per-iteration pipeline:
// symmetric matching in both directions, median-based rejection, solving
// for and applying an incremental transform of the given class, optional
// rigid orthogonalization, and optional CDF reweighting for subsequent
// iterations.
func runIteration(h1, h2 *setHandle, cfg Config, requestedType, iterXform XformType, maxDistance, normDotThreshold float64, updateCDFs bool) iterationOutcome {
	var pairs []PtPair
	pairs = selectAndMatch(matchParams{
		Source: h1.Points, Target: h2.Points,
		XfSource: h1.Xf, XfTarget: h2.Xf,
		TargetTree: h2.Tree, CDF: h1.CDF, CDFIncrement: h1.cdfIncrement,
		MaxDistance: maxDistance, NormDotThresh: normDotThreshold,
		FlipOrder: false, RejectBoundary: cfg.RejectBoundary, UseNormCompat: cfg.UseNormCompat,
		RNG: cfg.rng(),
	}, pairs)
	pairs = selectAndMatch(matchParams{
		Source: h2.Points, Target: h1.Points,
		XfSource: h2.Xf, XfTarget: h1.Xf,
		TargetTree: h1.Tree, CDF: h2.CDF, CDFIncrement: h2.cdfIncrement,
		MaxDistance: maxDistance, NormDotThresh: normDotThreshold,
		FlipOrder: true, RejectBoundary: cfg.RejectBoundary, UseNormCompat: cfg.UseNormCompat,
		RNG: cfg.rng(),
	}, pairs)

	kept, stats, ok := rejectPairs(pairs, cfg)
	if !ok {
		if cfg.Verbose > 1 {
			log.Printf("[icp] iteration failed: %d pairs survived rejection (need %d)", len(kept), cfg.MinPairs)
		}
		return iterationOutcome{OK: false}
	}

	var res alignResult
	switch iterXform {
	case Translation:
		res = alignTranslation(kept, cfg)
	case Similarity:
		res = alignRigid(kept, cfg)
		res.Increment = applyPostHocScale(res.Increment, kept)
	case Affine:
		res = alignRigid(kept, cfg)
		res.Increment = applyPostHocAffine(res.Increment, kept)
	default:
		res = alignRigid(kept, cfg)
	}

	h2.Xf = linalg.Compose(res.Increment, h2.Xf)
	if requestedType == Rigid {
		h2.Xf = linalg.Orthogonalize(h2.Xf)
	}

	if updateCDFs {
		cdf1, cdf2, ok := reweightSets(h1, h2, res)
		if !ok {
			if cfg.Verbose > 1 {
				log.Printf("[icp] iteration failed: zero overlap during CDF reweighting")
			}
			return iterationOutcome{OK: false}
		}
		h1.CDF, h2.CDF = cdf1, cdf2
	}

	if cfg.Verbose > 1 {
		log.Printf("[icp] pairs=%d maxDist=%.4g normDotThresh=%.4g rms=%.6g", len(kept), stats.MaxDistance, stats.NormDotThreshold, res.RMS)
	}

	return iterationOutcome{
		MaxDistance:      stats.MaxDistance,
		NormDotThreshold: stats.NormDotThreshold,
		SurvivingPairs:   len(kept),
		RMS:              res.RMS,
		OK:               true,
	}
}

// runController executes spec.md §4.7's full sequence: initial iteration,
// main loop with patience-based termination and transform-type promotion,
// and final refinement at a higher sampling rate. h1/h2 must already carry
// built grids, trees, weights, and initial CDFs.
func runController(h1, h2 *setHandle, cfg Config, requestedType XformType, maxDistance float64, synth1, synth2 bool) float64 {
	normDotThreshold := 0.5
	h1.cdfIncrement = 2.0 / float64(cfg.DesiredPairs)
	h2.cdfIncrement = h1.cdfIncrement

	iterXform := Rigid
	if requestedType == Translation {
		iterXform = Translation
	}

	out := runIteration(h1, h2, cfg, requestedType, iterXform, maxDistance, normDotThreshold, false)
	if !out.OK {
		return FailureSentinel
	}
	maxDistance, normDotThreshold = out.MaxDistance, out.NormDotThreshold
	h1.cdfIncrement = rescaleCDFIncrement(h1.cdfIncrement, out.SurvivingPairs, cfg.DesiredPairs)
	h2.cdfIncrement = h1.cdfIncrement
	reportIteration(cfg, 0, out)

	minError := out.RMS
	staleCount := 0
	finalRMS := out.RMS
	lastMainIter := 0

	for iter := 1; iter <= cfg.MaxIters; iter++ {
		lastMainIter = iter
		recompute := iter%cfg.CDFUpdateInterval == 0

		if recompute {
			if synth1 || synth2 {
				o1, o2, usedMaxDist := computeOverlaps(h1, h2, maxDistance)
				maxDistance = usedMaxDist
				if synth1 {
					h1.Weights = o1
				}
				if synth2 {
					h2.Weights = o2
				}
			}
			cdf1, ok1 := BuildCDF(h1.Weights)
			cdf2, ok2 := BuildCDF(h2.Weights)
			if !ok1 || !ok2 {
				return FailureSentinel
			}
			h1.CDF, h2.CDF = cdf1, cdf2
		}

		if iter == cfg.MaxIters/2 && (requestedType == Similarity || requestedType == Affine) {
			iterXform = requestedType
		}

		out = runIteration(h1, h2, cfg, requestedType, iterXform, maxDistance, normDotThreshold, recompute)
		if !out.OK {
			return FailureSentinel
		}
		maxDistance, normDotThreshold = out.MaxDistance, out.NormDotThreshold
		h1.cdfIncrement = rescaleCDFIncrement(h1.cdfIncrement, out.SurvivingPairs, cfg.DesiredPairs)
		h2.cdfIncrement = h1.cdfIncrement
		finalRMS = out.RMS
		reportIteration(cfg, iter, out)

		if !recompute {
			if out.RMS < minError {
				minError = out.RMS
				staleCount = 0
			} else {
				staleCount++
			}
			if staleCount >= cfg.TerminationIterThresh && (requestedType == Translation || requestedType == Rigid) {
				break
			}
		}
	}

	h1.cdfIncrement *= float64(cfg.DesiredPairs) / float64(cfg.DesiredPairsFinal)
	h2.cdfIncrement = h1.cdfIncrement
	cdf1, ok1 := BuildCDF(h1.Weights)
	cdf2, ok2 := BuildCDF(h2.Weights)
	if !ok1 || !ok2 {
		return FailureSentinel
	}
	h1.CDF, h2.CDF = cdf1, cdf2

	for i := 0; i < cfg.FinalIters; i++ {
		out = runIteration(h1, h2, cfg, requestedType, iterXform, maxDistance, normDotThreshold, false)
		if !out.OK {
			return FailureSentinel
		}
		maxDistance, normDotThreshold = out.MaxDistance, out.NormDotThreshold
		h1.cdfIncrement = rescaleCDFIncrement(h1.cdfIncrement, out.SurvivingPairs, cfg.DesiredPairsFinal)
		h2.cdfIncrement = h1.cdfIncrement
		finalRMS = out.RMS
		reportIteration(cfg, lastMainIter+i+1, out)
	}

	return finalRMS
}

// reportIteration invokes cfg.OnIteration, if set, with iter's diagnostics.
func reportIteration(cfg Config, iter int, out iterationOutcome) {
	if cfg.OnIteration == nil {
		return
	}
	cfg.OnIteration(IterationEvent{
		Iteration:        iter,
		PairCount:        out.SurvivingPairs,
		MaxDistance:      out.MaxDistance,
		NormDotThreshold: out.NormDotThreshold,
		RMS:              out.RMS,
	})
}
