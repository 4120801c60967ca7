package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dealpulse/ma-health-go/internal/models"
)

// ForecastCacheStats tracks cache performance metrics
type ForecastCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// RedisForecastCache caches completed forecast results in Redis, keyed by a
// digest of the input data and pipeline parameters. The same inputs always
// produce the same forecast, so a digest hit can serve the stored result
// without refitting.
type RedisForecastCache struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *ForecastCacheStats
	prefix string
	logger *logrus.Logger
}

// NewRedisForecastCache creates a Redis-backed forecast cache.
func NewRedisForecastCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisForecastCache {
	return &RedisForecastCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &ForecastCacheStats{},
		prefix: "forecast_cache:",
		logger: logger,
	}
}

// Key derives the cache key from the aligned input data and the request
// parameters. Any change in an observation, horizon or confidence level
// yields a different digest.
func (c *RedisForecastCache) Key(set *models.SeriesSet, horizon int, level float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "h=%d;cl=%g;", horizon, level)

	names := set.Names()
	sort.Strings(names)
	for _, name := range names {
		s := set.Series[name]
		fmt.Fprintf(h, "%s:", name)
		for i := range s.Values {
			fmt.Fprintf(h, "%d=%g;", s.Timestamps[i].UnixNano(), s.Values[i])
		}
	}
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached forecast result, reporting whether the key was
// present.
func (c *RedisForecastCache) Get(ctx context.Context, key string) (*models.ForecastResult, bool) {
	data, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		c.miss()
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Forecast cache read failed")
		c.miss()
		return nil, false
	}

	var result models.ForecastResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.WithError(err).Warn("Forecast cache entry corrupt, dropping")
		c.redis.Del(ctx, key)
		c.miss()
		return nil, false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	return &result, true
}

// Set stores a forecast result under the given key with the cache TTL.
func (c *RedisForecastCache) Set(ctx context.Context, key string, result *models.ForecastResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal forecast for cache: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache forecast: %w", err)
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
	return nil
}

// Stats returns a snapshot of the hit/miss/set counters.
func (c *RedisForecastCache) Stats() ForecastCacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return ForecastCacheStats{Hits: c.stats.Hits, Misses: c.stats.Misses, Sets: c.stats.Sets}
}

func (c *RedisForecastCache) miss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
