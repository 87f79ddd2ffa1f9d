// Package tilecache stores encoded PNG tiles: a capacity-bounded
// in-process LRU fronting an optional shared external store (Redis).
// When the external store is absent or unavailable the in-process map
// suffices.
package tilecache

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"meteotiles/internal/metrics"
)

// Store is the external shared cache interface. Implementations must
// treat misses and errors alike: a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

// Cache is the two-tier tile cache.
type Cache struct {
	local    *lru.Cache[string, []byte]
	external Store // nil when not configured
	met      *metrics.Registry
}

func New(capacity int, external Store, met *metrics.Registry) (*Cache, error) {
	l, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{local: l, external: external, met: met}, nil
}

// Get returns the encoded tile and a hit indicator. Keys are the
// String form of a TileKey, or the canonical window signature for
// arbitrary GetMap bboxes.
func (c *Cache) Get(ctx context.Context, k string) ([]byte, bool) {
	if b, ok := c.local.Get(k); ok {
		c.met.TileHits.Inc()
		return b, true
	}
	if c.external != nil {
		if b, ok := c.external.Get(ctx, k); ok {
			c.local.Add(k, b)
			c.met.TileHits.Inc()
			return b, true
		}
	}
	c.met.TileMisses.Inc()
	return nil, false
}

// Set inserts into both tiers. The external write is best-effort.
func (c *Cache) Set(ctx context.Context, k string, val []byte, ttl time.Duration) {
	c.local.Add(k, val)
	if c.external != nil {
		c.external.Set(ctx, k, val, ttl)
	}
}

// Len reports the in-process entry count.
func (c *Cache) Len() int { return c.local.Len() }

// redisStore adapts a go-redis client to Store.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a redis client as the external tier.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (s *redisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, val, ttl).Err(); err != nil {
		slog.Debug("tile cache external set failed", "key", key, "error", err)
	}
}
