package statscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hotspotd/internal/db"
	"github.com/kailas-cloud/hotspotd/internal/domain"
)

const cacheKeyPrefix = "hotspot:stats:"

// store is the consumer interface for the stats cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Unlink(ctx context.Context, key string) error
}

// statsComputer recomputes a group's aggregate on cache miss.
type statsComputer interface {
	ComputeStats(ctx context.Context, groupID string) *domain.GroupStats
}

// Cache holds per-group stats in a TTL'd key-value entry. Mutating catalog
// operations call Invalidate instead of waiting for TTL expiry.
type Cache struct {
	store store
	stats statsComputer
	log   *zap.Logger
	ttl   time.Duration
}

// New creates a stats cache with the given TTL.
func New(s store, stats statsComputer, log *zap.Logger, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &Cache{store: s, stats: stats, log: log, ttl: ttl}
}

// GetOrCompute returns the cached stats for a group, recomputing and
// re-caching on miss. A payload that no longer decodes is treated as a miss.
func (c *Cache) GetOrCompute(ctx context.Context, groupID string) *domain.GroupStats {
	key := cacheKey(groupID)

	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil && len(data) > 0:
		var stats domain.GroupStats
		if jsonErr := json.Unmarshal(data, &stats); jsonErr == nil {
			return &stats
		}
		c.log.Warn("Discarding corrupted stats cache entry",
			zap.String("group_id", groupID))
	case err != nil && !errors.Is(err, db.ErrKeyNotFound):
		c.log.Warn("Failed to read stats cache",
			zap.String("group_id", groupID), zap.Error(err))
	}

	stats := c.stats.ComputeStats(ctx, groupID)

	if data, err := json.Marshal(stats); err == nil {
		if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
			c.log.Warn("Failed to cache group stats",
				zap.String("group_id", groupID), zap.Error(err))
		}
	}
	return stats
}

// Invalidate drops the group's cache entry.
func (c *Cache) Invalidate(ctx context.Context, groupID string) {
	if err := c.store.Unlink(ctx, cacheKey(groupID)); err != nil {
		c.log.Warn("Failed to invalidate stats cache",
			zap.String("group_id", groupID), zap.Error(err))
	}
}

func cacheKey(groupID string) string {
	return cacheKeyPrefix + groupID
}
