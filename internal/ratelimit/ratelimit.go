// Package ratelimit implements the Redis-backed sliding-window rate
// limiter that gates the share-link creation endpoint (§6); the admin
// endpoints are not rate-limited. Grounded on
// the per-IP window in
// original_source/services/api/routers/shared_trips.py.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter enforces a sliding-window request cap per key (e.g. a client
// IP or user ID) using a Redis sorted set: members are request
// timestamps, scored by the same timestamp, so entries outside the
// window can be trimmed with ZREMRANGEBYSCORE on every check.
type Limiter struct {
	redis  *redis.Client
	logger *zap.Logger
	prefix string
	max    int
	window time.Duration
}

// NewLimiter builds a limiter allowing at most max requests per window,
// keyed under the given prefix (e.g. "ratelimit:share:ip").
func NewLimiter(redisClient *redis.Client, logger *zap.Logger, prefix string, max int, window time.Duration) *Limiter {
	return &Limiter{redis: redisClient, logger: logger, prefix: prefix, max: max, window: window}
}

// Allow reports whether a request for key is within the rate limit. A
// Redis failure fails OPEN (allows the request) and logs a warning —
// this pass is a protective measure, not a correctness guarantee, and
// must never block traffic on an unrelated Redis outage.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.redis == nil {
		return true
	}

	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	now := time.Now()
	windowStart := now.Add(-l.window).UnixNano()
	member := fmt.Sprintf("%d", now.UnixNano())

	pipe := l.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart))
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, redisKey, l.window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("rate limiter pipeline failed, failing open", zap.String("key", redisKey), zap.Error(err))
		return true
	}

	currentCount, err := countCmd.Result()
	if err != nil {
		l.logger.Warn("rate limiter count read failed, failing open", zap.String("key", redisKey), zap.Error(err))
		return true
	}

	return currentCount < int64(l.max)
}
