package batch

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBuildBPRPairs_SkipsUsersWithoutBoth(t *testing.T) {
	userWithBoth := uuid.New()
	userOnlyPositive := uuid.New()

	positives := map[uuid.UUID][]string{
		userWithBoth:      {"node-a", "node-b"},
		userOnlyPositive:  {"node-c"},
	}
	negatives := map[uuid.UUID][]string{
		userWithBoth: {"node-x"},
	}

	pairs := buildBPRPairs(positives, negatives, 1700000000)
	require.Len(t, pairs, 2, "only the user with both positives and negatives should produce pairs")
	for _, p := range pairs {
		require.Equal(t, userWithBoth.String(), p.UserID)
		require.Equal(t, "node-x", p.NegItem)
	}
}

func TestBuildBPRPairs_EmptyWhenNoOverlap(t *testing.T) {
	userID := uuid.New()
	positives := map[uuid.UUID][]string{userID: {"node-a"}}
	negatives := map[uuid.UUID][]string{}

	pairs := buildBPRPairs(positives, negatives, 1700000000)
	require.Empty(t, pairs)
}
