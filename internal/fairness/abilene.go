package fairness

// Fixed constants for Abilene-paradox detection (spec §4.3), grounded on
// original_source/services/api/group/abilene_detector.py.
const (
	EnthusiasmThreshold         = 0.4
	MinCandidatesForDetection   = 3
)

// Result is the outcome of running Abilene detection on one resolved
// vote.
type Result struct {
	IsAbilene             bool
	MemberEnthusiasm      map[string]float64
	GroupAverageEnthusiasm float64
	MinEnthusiasm         float64
	Threshold             float64
	Recommendation        string
}

const abileneRecommendation = "It looks like nobody is particularly excited about this option. Does the group want to explore some alternatives?"

// ScoreEnthusiasm converts a 1-based preference rank into an enthusiasm
// score in [0,1], where rank 1 (top choice) scores 1.0.
func ScoreEnthusiasm(preferenceRank, totalCandidates int) float64 {
	denom := totalCandidates - 1
	if denom < 1 {
		denom = 1
	}
	normalizedRank := clamp(float64(preferenceRank-1), 0, float64(denom))
	return 1.0 - (normalizedRank / float64(denom))
}

// Detect evaluates whether a resolved vote exhibits the Abilene paradox:
// every member scoring below EnthusiasmThreshold for the option the
// group actually chose.
func Detect(memberPreferenceRanks map[string]int, totalCandidates int) Result {
	if totalCandidates < MinCandidatesForDetection {
		enthusiasm := make(map[string]float64, len(memberPreferenceRanks))
		for memberID := range memberPreferenceRanks {
			enthusiasm[memberID] = 1.0
		}
		return Result{
			IsAbilene:              false,
			MemberEnthusiasm:       enthusiasm,
			GroupAverageEnthusiasm: 1.0,
			MinEnthusiasm:          1.0,
			Threshold:              EnthusiasmThreshold,
		}
	}

	enthusiasm := make(map[string]float64, len(memberPreferenceRanks))
	var sum float64
	minScore := 1.0
	first := true
	for memberID, rank := range memberPreferenceRanks {
		score := ScoreEnthusiasm(rank, totalCandidates)
		enthusiasm[memberID] = score
		sum += score
		if first || score < minScore {
			minScore = score
			first = false
		}
	}

	if len(memberPreferenceRanks) == 0 {
		return Result{
			IsAbilene:              false,
			MemberEnthusiasm:       enthusiasm,
			GroupAverageEnthusiasm: 1.0,
			MinEnthusiasm:          1.0,
			Threshold:              EnthusiasmThreshold,
		}
	}

	avg := sum / float64(len(memberPreferenceRanks))

	allLukewarm := true
	for _, score := range enthusiasm {
		if score >= EnthusiasmThreshold {
			allLukewarm = false
			break
		}
	}

	result := Result{
		IsAbilene:              allLukewarm,
		MemberEnthusiasm:       enthusiasm,
		GroupAverageEnthusiasm: avg,
		MinEnthusiasm:          minScore,
		Threshold:              EnthusiasmThreshold,
	}
	if allLukewarm {
		result.Recommendation = abileneRecommendation
	}
	return result
}
