// Package cache implements domain.ContentCache on Redis. Normalized story
// HTML is cached keyed by a hash of the raw upstream content, so re-syncing
// an unchanged post skips the normalization pass.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bubblescafe/storyapi/internal/adapter/observability"
	"github.com/bubblescafe/storyapi/internal/domain"
)

// RedisCache stores normalized content with a TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New constructs a RedisCache. A nil client yields a cache that always misses.
func New(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// ContentKey derives the cache key for a piece of raw content.
func ContentKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return "content:norm:" + hex.EncodeToString(sum[:])
}

// Get returns the cached normalized HTML for the raw content and whether it
// was present. Misses are not errors.
func (c *RedisCache) Get(ctx domain.Context, raw string) (string, bool, error) {
	if c == nil || c.rdb == nil {
		return "", false, nil
	}
	val, err := c.rdb.Get(ctx, ContentKey(raw)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observability.ContentCacheHitsTotal.WithLabelValues("miss").Inc()
			return "", false, nil
		}
		observability.ContentCacheHitsTotal.WithLabelValues("error").Inc()
		return "", false, fmt.Errorf("op=cache.get: %w", err)
	}
	observability.ContentCacheHitsTotal.WithLabelValues("hit").Inc()
	return val, true, nil
}

func (c *RedisCache) Set(ctx domain.Context, raw, normalized string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, ContentKey(raw), normalized, c.ttl).Err(); err != nil {
		return fmt.Errorf("op=cache.set: %w", err)
	}
	return nil
}
