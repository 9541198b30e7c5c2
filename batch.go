package main

import (
	"fmt"

	"github.com/kwv/icp3d/icp"
	"github.com/kwv/icp3d/linalg"
	"github.com/kwv/icp3d/pointset"
)

// NamedSet pairs a point set with an identifier used for cache keys and
// batch results.
type NamedSet struct {
	ID  string
	Set pointset.Set
}

// BatchResult is the outcome of aligning one non-reference set against the
// batch's reference set.
type BatchResult struct {
	ID        string
	Transform linalg.Transform
	RMS       float64
	Failed    bool
}

// SelectReference auto-selects the reference set by vertex count (the set
// with the most vertices), generalizing mesh.SelectReferenceVacuum's
// largest-total-layer-area heuristic from map coverage to point density.
func SelectReference(sets []NamedSet) string {
	var bestID string
	bestLen := -1
	for _, s := range sets {
		if s.Set.Len() > bestLen {
			bestLen = s.Set.Len()
			bestID = s.ID
		}
	}
	return bestID
}

// AlignBatchToReference runs the pairwise ICP core independently for each
// non-reference set against referenceID, generalizing
// mesh.CalibrateVacuums/AutoCalibrator's "align every vacuum to one
// reference" orchestration from vacuum maps to arbitrary point sets. This
// never performs simultaneous multi-set optimization: each call is an
// independent two-set icp.AlignAuto invocation, starting from init (or
// identity, if init has no entry for that ID).
func AlignBatchToReference(sets []NamedSet, referenceID string, init map[string]linalg.Transform, cfg icp.Config, xformType icp.XformType) ([]BatchResult, error) {
	var reference pointset.Set
	for _, s := range sets {
		if s.ID == referenceID {
			reference = s.Set
			break
		}
	}
	if reference == nil {
		return nil, fmt.Errorf("reference set %q not found among %d sets", referenceID, len(sets))
	}

	results := make([]BatchResult, 0, len(sets))
	for _, s := range sets {
		if s.ID == referenceID {
			results = append(results, BatchResult{ID: s.ID, Transform: linalg.Identity(), RMS: 0})
			continue
		}

		xf := linalg.Identity()
		if init != nil {
			if seeded, ok := init[s.ID]; ok {
				xf = seeded
			}
		}

		rms := icp.AlignAuto(reference, s.Set, linalg.Identity(), &xf, 0, cfg, xformType)
		results = append(results, BatchResult{
			ID:        s.ID,
			Transform: xf,
			RMS:       rms,
			Failed:    rms == icp.FailureSentinel,
		})
	}
	return results, nil
}
