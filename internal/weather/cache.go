// Package weather implements the OpenWeatherMap client with a layered
// cache keyed per city per hour, and the outdoor-risk / weather-pivot
// rules consumed by the signal pipeline and cascade engine. Grounded on
// original_source/services/api/weather/service.py and cache.py.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const cacheTTL = time.Hour

var nonAlphaNumRun = regexp.MustCompile(`[^a-z0-9]+`)

// slugify normalizes a city name to an ASCII slug for use in cache keys:
// "São Paulo" -> "sao-paulo", "New York" -> "new-york". NFKD-decomposes
// the string and strips combining marks before lowercasing.
func slugify(city string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	ascii, _, err := transform.String(t, city)
	if err != nil {
		ascii = city
	}
	slug := strings.Trim(nonAlphaNumRun.ReplaceAllString(strings.ToLower(ascii), "-"), "-")
	if slug == "" {
		return "unknown"
	}
	return slug
}

func hourBucket(now time.Time) string {
	return now.UTC().Format("20060102_15")
}

func cacheKey(city string, now time.Time) string {
	return fmt.Sprintf("weather:%s:%s", slugify(city), hourBucket(now))
}

// Cache is a two-tier weather cache: an in-process go-cache front end
// in front of Redis, so a key already fetched or set in this process is
// served without a Redis round trip. Concurrent misses on the same key
// each go to Redis. A nil Redis client leaves only the in-process tier.
type Cache struct {
	redis  *redis.Client
	local  *gocache.Cache
	logger *zap.Logger
}

func NewCache(redisClient *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{
		redis:  redisClient,
		local:  gocache.New(cacheTTL, 10*time.Minute),
		logger: logger,
	}
}

// Get returns the cached raw OpenWeatherMap payload for city, or nil on
// a miss or when the cache is unavailable.
func (c *Cache) Get(ctx context.Context, city string) map[string]any {
	key := cacheKey(city, time.Now())

	if v, ok := c.local.Get(key); ok {
		c.logger.Debug("weather local cache hit", zap.String("key", key))
		return v.(map[string]any)
	}

	if c.redis == nil {
		return nil
	}

	raw, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		c.logger.Debug("weather cache miss", zap.String("key", key))
		return nil
	}
	if err != nil {
		c.logger.Warn("weather cache GET failed", zap.String("key", key), zap.Error(err))
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		c.logger.Warn("weather cache payload unmarshal failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	c.local.Set(key, payload, cacheTTL)
	c.logger.Debug("weather cache hit", zap.String("key", key))
	return payload
}

// Set writes the raw payload to both cache tiers with a 1-hour TTL.
func (c *Cache) Set(ctx context.Context, city string, payload map[string]any) {
	key := cacheKey(city, time.Now())
	c.local.Set(key, payload, cacheTTL)

	if c.redis == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("weather cache payload marshal failed", zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, raw, cacheTTL).Err(); err != nil {
		c.logger.Warn("weather cache SET failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.logger.Debug("weather cached", zap.String("key", key), zap.Duration("ttl", cacheTTL))
}

// Invalidate force-evicts a city's current-hour entry from both tiers.
func (c *Cache) Invalidate(ctx context.Context, city string) {
	key := cacheKey(city, time.Now())
	c.local.Delete(key)
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("weather cache DELETE failed", zap.String("key", key), zap.Error(err))
	}
}
