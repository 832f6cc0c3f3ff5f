package shadow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOverlapAtK_FullOverlap(t *testing.T) {
	shadow := []string{"a", "b", "c"}
	prod := []string{"a", "b", "c", "d"}
	require.InDelta(t, 1.0, OverlapAtK(shadow, prod, 3), 1e-9)
}

func TestOverlapAtK_NoOverlap(t *testing.T) {
	shadow := []string{"x", "y"}
	prod := []string{"a", "b"}
	require.Equal(t, 0.0, OverlapAtK(shadow, prod, 2))
}

func TestOverlapAtK_EmptyInputReturnsZero(t *testing.T) {
	require.Equal(t, 0.0, OverlapAtK(nil, []string{"a"}, 5))
	require.Equal(t, 0.0, OverlapAtK([]string{"a"}, nil, 5))
}

func TestOverlapAtK_DedupesShadowDuplicates(t *testing.T) {
	shadow := []string{"a", "a", "b"}
	prod := []string{"a", "b"}
	// k_effective is len(shadowTop)=3 but only 2 distinct matches count.
	require.InDelta(t, 2.0/3.0, OverlapAtK(shadow, prod, 3), 1e-9)
}

func TestNDCGAtK_IdenticalOrderIsPerfect(t *testing.T) {
	rankings := []string{"a", "b", "c"}
	require.InDelta(t, 1.0, NDCGAtK(rankings, rankings, 3), 1e-9)
}

func TestNDCGAtK_ReversedOrderIsLessThanPerfect(t *testing.T) {
	shadow := []string{"c", "b", "a"}
	prod := []string{"a", "b", "c"}
	got := NDCGAtK(shadow, prod, 3)
	require.Less(t, got, 1.0)
	require.Greater(t, got, 0.0)
}

func TestNDCGAtK_ZeroIDCGReturnsZero(t *testing.T) {
	require.Equal(t, 0.0, NDCGAtK([]string{"a"}, nil, 5))
}

func TestNDCGAtK_ShadowItemOutsideProductionScoresZeroRelevance(t *testing.T) {
	shadow := []string{"unseen"}
	prod := []string{"a", "b", "c"}
	got := NDCGAtK(shadow, prod, 3)
	require.Equal(t, 0.0, got)
}
