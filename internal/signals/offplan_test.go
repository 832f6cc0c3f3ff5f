package signals

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePlaceName_CaseInsensitiveDedupKey(t *testing.T) {
	require.Equal(t, normalizePlaceName("Cafe X"), normalizePlaceName("cafe x"),
		"the unmatched-branch venue key must be case-insensitive so differently-cased entries of the same venue dedupe")
	require.Equal(t, "cafe x", normalizePlaceName("Cafe X"))
}
