package rank

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestComputeLocalVsTouristBias(t *testing.T) {
	candidates := []TouristCandidate{
		{TouristScore: 0.9}, {TouristScore: 0.9}, {TouristScore: 0.2}, {TouristScore: 0.1},
	}
	require.InDelta(t, 0.5, ComputeLocalVsTouristBias(candidates), 1e-9)
}

func TestComputeLocalVsTouristBias_Empty(t *testing.T) {
	require.Equal(t, 0.0, ComputeLocalVsTouristBias(nil))
}

func TestApplyTouristCorrection_NoOpWhenDisabled(t *testing.T) {
	logger := zap.NewNop()
	candidates := []TouristCandidate{{ActivityNodeID: "a", TouristScore: 0.9, SourceCount: 5}}
	got := ApplyTouristCorrection(candidates, "Kyoto", false, logger)
	require.Equal(t, candidates, got)
}

func TestApplyTouristCorrection_DemotesWhenAllThreeConditionsHold(t *testing.T) {
	logger := zap.NewNop()
	candidates := []TouristCandidate{
		{ActivityNodeID: "tourist-1", TouristScore: 0.9, SourceCount: 5},
		{ActivityNodeID: "tourist-2", TouristScore: 0.8, SourceCount: 4},
		{ActivityNodeID: "local-1", TouristScore: 0.1, SourceCount: 1},
	}
	got := ApplyTouristCorrection(candidates, "Kyoto", true, logger)
	require.Equal(t, "local-1", got[0].ActivityNodeID)
	require.Equal(t, "tourist-1", got[1].ActivityNodeID)
	require.Equal(t, "tourist-2", got[2].ActivityNodeID)
}

func TestApplyTouristCorrection_NoCorrectionBelowBiasThreshold(t *testing.T) {
	logger := zap.NewNop()
	candidates := []TouristCandidate{
		{ActivityNodeID: "tourist-1", TouristScore: 0.9, SourceCount: 5},
		{ActivityNodeID: "local-1", TouristScore: 0.1, SourceCount: 1},
		{ActivityNodeID: "local-2", TouristScore: 0.1, SourceCount: 1},
		{ActivityNodeID: "local-3", TouristScore: 0.1, SourceCount: 1},
	}
	got := ApplyTouristCorrection(candidates, "Kyoto", true, logger)
	require.Equal(t, candidates, got)
}

func TestApplyTouristCorrection_SourceCountBelowMinimumNotDemoted(t *testing.T) {
	logger := zap.NewNop()
	candidates := []TouristCandidate{
		{ActivityNodeID: "tourist-1", TouristScore: 0.9, SourceCount: 1},
		{ActivityNodeID: "tourist-2", TouristScore: 0.9, SourceCount: 5},
		{ActivityNodeID: "local-1", TouristScore: 0.1, SourceCount: 1},
	}
	got := ApplyTouristCorrection(candidates, "Kyoto", true, logger)
	require.Equal(t, []string{"tourist-1", "local-1", "tourist-2"},
		[]string{got[0].ActivityNodeID, got[1].ActivityNodeID, got[2].ActivityNodeID},
		"tourist-1 lacks the minimum source count so it is kept in place; only tourist-2 is demoted")
}
