package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// The write-back CTE previously bound the FILTER clauses with
// `signal_type = ANY(?::text[])`, which gorm expands a []string arg
// into a row-constructor `(...)`, not a real array literal — invalid
// at execution time. These assertions guard against that regression.
func TestWriteBackSQL_UsesINBindingNotRowConstructorANY(t *testing.T) {
	require.Contains(t, writeBackSQL, "signal_type IN ?")
	require.NotContains(t, writeBackSQL, "ANY(")
}

func TestWriteBackSQL_CumulativeDenominator(t *testing.T) {
	require.Contains(t, writeBackSQL, "an.impression_count + sa.impression_count")
	require.Contains(t, writeBackSQL, "an.acceptance_count + sa.acceptance_count")
}

func TestTruncateToDate_StripsTimeOfDay(t *testing.T) {
	in := time.Date(2026, 2, 22, 15, 30, 45, 0, time.UTC)
	got := truncateToDate(in)
	require.Equal(t, time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC), got)
}

func TestWriteBackImpressionAndAcceptanceTypes_MatchSpec(t *testing.T) {
	require.ElementsMatch(t, []string{
		"slot_view", "slot_tap", "slot_confirm", "slot_complete",
		"discover_swipe_right", "discover_shortlist",
	}, writeBackImpressionTypes)

	require.ElementsMatch(t, []string{
		"slot_confirm", "slot_complete", "discover_shortlist", "post_loved",
	}, writeBackAcceptanceTypes)
}
