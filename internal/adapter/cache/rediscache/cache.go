// Package rediscache implements the recommendation cache on Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unicompass/unicompass/internal/adapter/observability"
	"github.com/unicompass/unicompass/internal/domain"
)

// Cache stores full recommendation payloads keyed per user and profile
// hash. Entries expire at the staleness TTL, so the cache cannot grow
// without bound.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a Cache around an existing Redis client.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get loads an entry. Absent keys and entries that fail to decode both
// report ok=false; a corrupt entry must behave like a miss, not an
// error.
func (c *Cache) Get(ctx context.Context, key string) (domain.CachedRecommendation, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.CachedRecommendation{}, false, nil
		}
		return domain.CachedRecommendation{}, false, fmt.Errorf("op=cache.get: %w", err)
	}
	var entry domain.CachedRecommendation
	if err := json.Unmarshal(raw, &entry); err != nil {
		observability.LoggerFromContext(ctx).Warn("dropping corrupt cache entry", "key", key, "error", err)
		return domain.CachedRecommendation{}, false, nil
	}
	return entry, true, nil
}

// Set stores an entry, unconditionally overwriting any previous value
// for the key.
func (c *Cache) Set(ctx context.Context, key string, entry domain.CachedRecommendation) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("op=cache.set: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("op=cache.set: %w", err)
	}
	return nil
}
