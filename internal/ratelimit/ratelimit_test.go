package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLimiter_NilRedisAlwaysAllows(t *testing.T) {
	limiter := NewLimiter(nil, zap.NewNop(), "ratelimit:test", 1, 0)
	require.True(t, limiter.Allow(context.Background(), "some-key"))
	require.True(t, limiter.Allow(context.Background(), "some-key"))
}
