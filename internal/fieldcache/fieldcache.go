// Package fieldcache is the in-memory cache of decoded source fields.
// Entries span four orders of magnitude (sub-megabyte radar frames up
// to ~135 MB HRRR grids), so eviction is driven by an aggregate memory
// budget first and an entry count second.
package fieldcache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"meteotiles/internal/grid"
	"meteotiles/internal/metrics"
)

// Loader decodes a missing field. It runs detached from the
// requesting context: a client disconnect never aborts a decode whose
// result is valuable to future requests.
type Loader func(ctx context.Context) (*grid.DecodedField, error)

type negEntry struct {
	err   error
	until time.Time
}

// Cache is a dual-limit LRU with coalesced concurrent loads and brief
// negative caching of decode failures.
type Cache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, *grid.DecodedField]
	memBytes int64
	maxBytes int64

	negative map[string]negEntry
	negTTL   time.Duration

	group   singleflight.Group
	loadSem *semaphore.Weighted

	met *metrics.Registry
	now func() time.Time
}

// New sizes the cache. maxEntries bounds fragmentation under many tiny
// radar frames; maxBytes keeps HRRR-heavy workloads inside physical
// memory.
func New(maxEntries int, maxBytes int64, negTTL time.Duration, maxLoads int64, met *metrics.Registry) *Cache {
	c := &Cache{
		maxBytes: maxBytes,
		negative: make(map[string]negEntry),
		negTTL:   negTTL,
		loadSem:  semaphore.NewWeighted(maxLoads),
		met:      met,
		now:      time.Now,
	}
	l, _ := simplelru.NewLRU(maxEntries, func(key string, f *grid.DecodedField) {
		c.memBytes -= f.SizeBytes()
	})
	c.lru = l
	return c
}

// Get probes the cache without loading.
func (c *Cache) Get(key grid.FieldKey) (*grid.DecodedField, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key.String())
}

// GetOrLoad returns the cached field or runs loader exactly once per
// key across all concurrent callers. Waiters abandoned by their
// context stop waiting, but the decode continues and publishes.
func (c *Cache) GetOrLoad(ctx context.Context, key grid.FieldKey, loader Loader) (*grid.DecodedField, error) {
	k := key.String()

	c.mu.Lock()
	if f, ok := c.lru.Get(k); ok {
		c.mu.Unlock()
		c.met.FieldHits.Inc()
		return f, nil
	}
	if n, ok := c.negative[k]; ok {
		if c.now().Before(n.until) {
			c.mu.Unlock()
			return nil, n.err
		}
		delete(c.negative, k)
	}
	c.mu.Unlock()
	c.met.FieldMisses.Inc()

	// The singleflight group is the per-key in-flight promise; it
	// drops the marker itself once the call completes, on success and
	// on failure alike. DoChan lets a cancelled waiter leave while the
	// decode keeps running.
	ch := c.group.DoChan(k, func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		if err := c.loadSem.Acquire(loadCtx, 1); err != nil {
			return nil, err
		}
		defer c.loadSem.Release(1)

		f, err := loader(loadCtx)
		if err != nil {
			c.met.DecodeFailures.Inc()
			c.mu.Lock()
			c.negative[k] = negEntry{err: err, until: c.now().Add(c.negTTL)}
			c.mu.Unlock()
			return nil, err
		}
		c.insert(k, f)
		return f, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.met.FieldCoalesced.Inc()
		}
		return res.Val.(*grid.DecodedField), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) insert(k string, f *grid.DecodedField) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.lru.Peek(k); ok {
		c.memBytes -= old.SizeBytes()
	}
	c.lru.Add(k, f)
	c.memBytes += f.SizeBytes()
	// Memory budget first; the LRU's own entry cap already handled
	// count overflow inside Add.
	for c.memBytes > c.maxBytes && c.lru.Len() > 1 {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Stats reports entry count and resident bytes.
func (c *Cache) Stats() (entries int, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), c.memBytes
}
