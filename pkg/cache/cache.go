package cache

// Package cache is a read-through cache with TTL expiry.
// Every data domain in the client (conditions, forecasts, region spot lists)
// gets its own Cache instance with its own TTL policy. A value younger than
// the TTL is served without touching the network; a miss runs the supplied
// fetcher and stores the result. Concurrent misses on the same key share one
// in-flight fetch.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Fetcher retrieves the authoritative value for a key on a cache miss.
type Fetcher[V any] func(ctx context.Context) (V, error)

type Cache[K comparable, V any] struct {
	log logs.Log
	ttl time.Duration

	itemsLock sync.Mutex
	items     map[K]entry[V]

	flight singleflight.Group

	// Overridable for tests
	now func() time.Time

	sweepStop chan bool
}

func NewCache[K comparable, V any](log logs.Log, ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		log:   log,
		ttl:   ttl,
		items: map[K]entry[V]{},
		now:   time.Now,
	}
}

// TTL returns the default TTL of this cache.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Get is a pure read against the in-memory table. It never fetches.
// An entry older than the TTL is a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.getFresh(key, c.ttl)
}

func (c *Cache[K, V]) getFresh(key K, ttl time.Duration) (V, bool) {
	c.itemsLock.Lock()
	defer c.itemsLock.Unlock()
	e, ok := c.items[key]
	if !ok || c.now().Sub(e.fetchedAt) >= ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Put stores a value with the current time as its fetch timestamp.
// This is used by push-style updaters (eg a live feed) that bypass fetching.
func (c *Cache[K, V]) Put(key K, value V) {
	c.itemsLock.Lock()
	defer c.itemsLock.Unlock()
	c.items[key] = entry[V]{value: value, fetchedAt: c.now()}
}

// GetOrFetch returns the cached value if it is younger than the cache TTL,
// otherwise runs fetch and stores the result.
func (c *Cache[K, V]) GetOrFetch(ctx context.Context, key K, fetch Fetcher[V]) (V, error) {
	return c.GetOrFetchTTL(ctx, key, c.ttl, fetch)
}

// GetOrFetchTTL is GetOrFetch with an explicit freshness window, for callers
// that can tolerate staler data than the cache default (never fresher, since
// a longer window merely accepts older entries).
//
// Concurrent callers that miss on the same key share a single fetch. If the
// fetch fails, any stale entry is left untouched and the error is returned to
// every waiting caller. There is no negative caching.
func (c *Cache[K, V]) GetOrFetchTTL(ctx context.Context, key K, ttl time.Duration, fetch Fetcher[V]) (V, error) {
	if v, ok := c.getFresh(key, ttl); ok {
		return v, nil
	}
	v, err, _ := c.flight.Do(fmt.Sprint(key), func() (any, error) {
		// A concurrent flight may have landed while we waited for our turn.
		if v, ok := c.getFresh(key, ttl); ok {
			return v, nil
		}
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, value)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Invalidate removes a single entry.
func (c *Cache[K, V]) Invalidate(key K) {
	c.itemsLock.Lock()
	defer c.itemsLock.Unlock()
	delete(c.items, key)
}

// InvalidateAll clears the entire table.
func (c *Cache[K, V]) InvalidateAll() {
	c.itemsLock.Lock()
	defer c.itemsLock.Unlock()
	c.items = map[K]entry[V]{}
}

// SweepExpired removes all entries older than the cache TTL, and returns the
// number removed. Call it periodically, or when the system is low on memory.
func (c *Cache[K, V]) SweepExpired() int {
	c.itemsLock.Lock()
	defer c.itemsLock.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.items {
		if now.Sub(e.fetchedAt) >= c.ttl {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

func (c *Cache[K, V]) Len() int {
	c.itemsLock.Lock()
	defer c.itemsLock.Unlock()
	return len(c.items)
}
