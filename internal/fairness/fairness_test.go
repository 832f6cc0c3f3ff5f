package fairness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordVote_ThreeVoteSequence(t *testing.T) {
	state := NewState()
	state = RecordVote(state, "slot-1", map[string]int{"A": 1, "B": 5, "C": 3}, 1)
	state = RecordVote(state, "slot-2", map[string]int{"A": 2, "B": 1, "C": 7}, 1)
	state = RecordVote(state, "slot-3", map[string]int{"A": 4, "B": 3, "C": 1}, 1)

	require.Equal(t, 3, state.TotalVotes)
	require.Equal(t, "slot-3", state.LastUpdatedSlot)
	require.Equal(t, 4.0, state.Members["A"].CumulativeDebt)
	require.Equal(t, 6.0, state.Members["B"].CumulativeDebt)
	require.Equal(t, 8.0, state.Members["C"].CumulativeDebt)
	require.Equal(t, "C", MostCompromisedMember(state, []string{"A", "B", "C"}))
}

func TestRecordVote_DoesNotMutateInput(t *testing.T) {
	state := NewState()
	state = RecordVote(state, "slot-1", map[string]int{"A": 3}, 1)
	next := RecordVote(state, "slot-2", map[string]int{"A": 1}, 1)

	require.Equal(t, 1, state.TotalVotes, "original state must not be mutated")
	require.Equal(t, 2, next.TotalVotes)
}

func TestRecordVote_ClampsDebt(t *testing.T) {
	state := NewState()
	for i := 0; i < 20; i++ {
		state = RecordVote(state, "slot", map[string]int{"A": 10}, 1)
	}
	require.Equal(t, maxDebt, state.Members["A"].CumulativeDebt)
}

func TestConflictWeights_SumToOne(t *testing.T) {
	state := NewState()
	state = RecordVote(state, "slot-1", map[string]int{"A": 5, "B": 1}, 1)

	weights := ConflictWeights(state, []string{"A", "B"})
	require.InDelta(t, 1.0, weights["A"]+weights["B"], 1e-9)
	require.Greater(t, weights["A"], weights["B"], "higher-debt member should get more weight")
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	state := NewState()
	state = RecordVote(state, "slot-1", map[string]int{"A": 3, "B": 1}, 1)

	data, err := Marshal(state)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, state, back)
}

func TestAbilene_ThreeVoteScenario(t *testing.T) {
	result := Detect(map[string]int{"A": 8, "B": 9, "C": 7}, 10)
	require.True(t, result.IsAbilene)
	require.NotEmpty(t, result.Recommendation)
	require.InDelta(t, 0.2222, result.MemberEnthusiasm["A"], 0.001)
	require.InDelta(t, 0.1111, result.MemberEnthusiasm["B"], 0.001)
	require.InDelta(t, 0.3333, result.MemberEnthusiasm["C"], 0.001)
}

func TestAbilene_OneEnthusiasticMemberBreaksIt(t *testing.T) {
	result := Detect(map[string]int{"A": 1, "B": 9, "C": 7}, 10)
	require.False(t, result.IsAbilene)
	require.Empty(t, result.Recommendation)
}

func TestAbilene_BelowMinCandidates(t *testing.T) {
	result := Detect(map[string]int{"A": 2, "B": 2}, 2)
	require.False(t, result.IsAbilene)
	require.Equal(t, 1.0, result.MemberEnthusiasm["A"])
	require.Equal(t, 1.0, result.GroupAverageEnthusiasm)
}

func TestAbilene_ThresholdBoundaryIsNotAbilene(t *testing.T) {
	// With 10 candidates no integer rank scores exactly 0.4 (rank-1 would be
	// 5.4), so use 6 candidates: rank 4 scores 1 - 3/5 = 0.4, exactly the
	// threshold.
	score := ScoreEnthusiasm(4, 6)
	require.Equal(t, EnthusiasmThreshold, score)

	result := Detect(map[string]int{"A": 4, "B": 4, "C": 4}, 6) // every member exactly at 0.4
	require.False(t, result.IsAbilene)
}
