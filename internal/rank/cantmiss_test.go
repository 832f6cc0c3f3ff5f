package rank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApplyCantMissFloor_EmptyCandidatesReturnsEmpty(t *testing.T) {
	got := ApplyCantMissFloor(context.Background(), nil, zap.NewNop(), nil)
	require.Empty(t, got)
}

func TestContainsTag(t *testing.T) {
	require.True(t, containsTag([]string{"a", iconicVibeTag}, iconicVibeTag))
	require.False(t, containsTag([]string{"a", "b"}, iconicVibeTag))
	require.False(t, containsTag(nil, iconicVibeTag))
}

func TestCantMissLookupSQL_UsesINBindingNotRowConstructorANY(t *testing.T) {
	require.Contains(t, cantMissLookupSQL, "id IN ?")
	require.NotContains(t, cantMissLookupSQL, "ANY(")
}

func TestParseJSONStringArray(t *testing.T) {
	require.Equal(t, []string{"iconic-worth-it"}, parseJSONStringArray(`["iconic-worth-it"]`))
	require.Nil(t, parseJSONStringArray(""))
	require.Nil(t, parseJSONStringArray("not-json"))
	require.Empty(t, parseJSONStringArray("[]"))
}
