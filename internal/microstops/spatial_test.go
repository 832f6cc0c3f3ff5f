package microstops

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimateDuration_KnownCategory(t *testing.T) {
	if got := EstimateDuration("dining"); got != 30 {
		t.Errorf("EstimateDuration(dining) = %d, want 30", got)
	}
	if got := EstimateDuration("drinks"); got != 20 {
		t.Errorf("EstimateDuration(drinks) = %d, want 20", got)
	}
}

func TestEstimateDuration_UnknownCategoryFallsBackToDefault(t *testing.T) {
	if got := EstimateDuration("something-nonexistent"); got != defaultMicroDuration {
		t.Errorf("EstimateDuration(unknown) = %d, want %d", got, defaultMicroDuration)
	}
}

func TestEstimateDuration_ClampedRange(t *testing.T) {
	for category := range categoryDefaultDuration {
		got := EstimateDuration(category)
		if got < 15 || got > 30 {
			t.Errorf("EstimateDuration(%s) = %d out of [15,30]", category, got)
		}
	}
}

func TestBuildSpatialQueryArgs_EmptyExcludeOmitsClause(t *testing.T) {
	clause, args := buildSpatialQueryArgs(1, 2, 3, 4, nil)
	require.Empty(t, clause, "an empty exclude list must omit the clause, not bind a NULL array")
	require.Equal(t, []interface{}{2.0, 1.0, 4.0, 3.0, TransitBufferMeters, MinConvergenceScore, MaxCandidates}, args)
}

func TestBuildSpatialQueryArgs_NonEmptyExcludeUsesINBinding(t *testing.T) {
	exclude := []string{"node-a", "node-b"}
	clause, args := buildSpatialQueryArgs(1, 2, 3, 4, exclude)

	require.Contains(t, clause, "IN ?", "exclude list must bind via gorm's IN expansion, not ANY(...::text[]) row-constructor syntax")
	require.NotContains(t, clause, "ANY(")

	require.Len(t, args, 8)
	require.Equal(t, exclude, args[6])
	require.Equal(t, MaxCandidates, args[7])
}

func TestBuildSpatialQueryArgs_ConvergenceFloorHasNoNullBranch(t *testing.T) {
	_, args := buildSpatialQueryArgs(0, 0, 0, 0, nil)
	require.Equal(t, MinConvergenceScore, args[5])
}
