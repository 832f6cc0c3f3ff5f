package rank

import "go.uber.org/zap"

// Thresholds for demotion — all three conditions must hold for a node to
// be pushed to the end of the ranked list.
const (
	TouristScoreThreshold = 0.65
	LocalBiasThreshold    = 0.55
	MinSourceCount        = 3
)

// TouristCandidate is the shape ApplyTouristCorrection needs; it carries
// the same ActivityNodeID as Candidate so callers can reconcile scores
// adjusted by ApplyCantMissFloor with reordering from this pass.
type TouristCandidate struct {
	ActivityNodeID string
	TouristScore   float64
	SourceCount    int
}

// ComputeLocalVsTouristBias returns the proportion of candidates whose
// TouristScore exceeds TouristScoreThreshold. Returns 0 for an empty set.
func ComputeLocalVsTouristBias(candidates []TouristCandidate) float64 {
	if len(candidates) == 0 {
		return 0.0
	}
	var highTourist int
	for _, c := range candidates {
		if c.TouristScore > TouristScoreThreshold {
			highTourist++
		}
	}
	return float64(highTourist) / float64(len(candidates))
}

// ApplyTouristCorrection demotes tourist-heavy nodes to the bottom of the
// ranked list when the candidate set skews touristy (more than
// LocalBiasThreshold of candidates score above TouristScoreThreshold). It
// is a pure reorder —
// no candidate is dropped, and the relative order within both the kept
// and demoted groups is preserved. A Phase 1 band-aid pending a learned
// ranker; gated by enabled (config.Features.TouristCorrectionEnabled),
// off by default.
func ApplyTouristCorrection(candidates []TouristCandidate, city string, enabled bool, logger *zap.Logger) []TouristCandidate {
	if !enabled {
		logger.Debug("tourist_correction: feature flag off, returning candidates unchanged")
		return candidates
	}
	if len(candidates) == 0 {
		return candidates
	}

	cityBias := ComputeLocalVsTouristBias(candidates)
	if cityBias <= LocalBiasThreshold {
		logger.Debug("tourist_correction: bias below threshold, no correction applied",
			zap.String("city", city), zap.Float64("bias", cityBias))
		return candidates
	}

	kept := make([]TouristCandidate, 0, len(candidates))
	demoted := make([]TouristCandidate, 0)

	for _, c := range candidates {
		shouldDemote := c.TouristScore > TouristScoreThreshold && c.SourceCount >= MinSourceCount
		if shouldDemote {
			demoted = append(demoted, c)
		} else {
			kept = append(kept, c)
		}
	}

	if len(demoted) > 0 {
		logger.Info("tourist_correction: demoted candidates",
			zap.String("city", city), zap.Float64("bias", cityBias),
			zap.Int("demoted", len(demoted)), zap.Int("total", len(candidates)))
	}

	return append(kept, demoted...)
}
