package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWindow_MidnightToMidnightUTC(t *testing.T) {
	runDate := time.Date(2026, 2, 22, 15, 30, 0, 0, time.UTC)
	start, end := Window(runDate)

	require.Equal(t, time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC), end)
}
