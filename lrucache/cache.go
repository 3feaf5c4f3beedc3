/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e *cacheEntry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && e.expiresAt.Before(now)
}

// Opts represents options for the cache.
type Opts[K comparable, V any] struct {
	// TTL is applied to every added entry. Zero means no expiration.
	// Expired entries are removed when they are accessed.
	TTL time.Duration

	// OnEvict is called (without internal locks held) when an entry leaves the cache:
	// it was pushed out by a newer one, removed explicitly, expired or purged.
	OnEvict func(key K, value V)

	// MetricsCollector collects statistics about cache usage. Metrics are disabled when nil.
	MetricsCollector MetricsCollector
}

// LRUCache represents an LRU cache with expiration, eviction callback and Prometheus metrics.
type LRUCache[K comparable, V any] struct {
	lru     *lru.Cache
	ttl     time.Duration
	metrics MetricsCollector
	loads   singleflight.Group
}

// New creates a new LRUCache with the provided maximum number of entries.
func New[K comparable, V any](maxEntries int) (*LRUCache[K, V], error) {
	return NewWithOpts[K, V](maxEntries, Opts[K, V]{})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts[K comparable, V any](maxEntries int, opts Opts[K, V]) (*LRUCache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	if opts.TTL < 0 {
		return nil, fmt.Errorf("ttl must be greater or equal to 0 (no expiration)")
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}

	var onEvicted func(key, value interface{})
	if opts.OnEvict != nil {
		onEvicted = func(key, value interface{}) {
			opts.OnEvict(key.(K), value.(*cacheEntry[V]).value)
		}
	}
	cache, err := lru.NewWithEvict(maxEntries, onEvicted)
	if err != nil {
		return nil, err
	}
	return &LRUCache[K, V]{lru: cache, ttl: opts.TTL, metrics: opts.MetricsCollector}, nil
}

// Get returns a value from the cache by the provided key.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	raw, found := c.lru.Get(key)
	if !found {
		c.metrics.IncMisses()
		return value, false
	}
	entry := raw.(*cacheEntry[V])
	if entry.expired(time.Now()) {
		c.lru.Remove(key)
		c.metrics.SetAmount(c.lru.Len())
		c.metrics.IncMisses()
		return value, false
	}
	c.metrics.IncHits()
	return entry.value, true
}

// Peek returns a value without updating its recency and without touching hit/miss metrics.
func (c *LRUCache[K, V]) Peek(key K) (value V, ok bool) {
	raw, found := c.lru.Peek(key)
	if !found || raw.(*cacheEntry[V]).expired(time.Now()) {
		return value, false
	}
	return raw.(*cacheEntry[V]).value, true
}

// Add adds a value to the cache. If the cache is full, the least recently used entry is evicted.
func (c *LRUCache[K, V]) Add(key K, value V) {
	entry := &cacheEntry[V]{value: value}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	if c.lru.Add(key, entry) {
		c.metrics.AddEvictions(1)
	}
	c.metrics.SetAmount(c.lru.Len())
}

// GetOrLoad returns a cached value or calls load and caches its result.
// Concurrent calls for the same missing key share a single load call.
// Errors returned by load are not cached.
func (c *LRUCache[K, V]) GetOrLoad(ctx context.Context, key K, load func(ctx context.Context) (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}
	res, err, _ := c.loads.Do(fmt.Sprint(key), func() (interface{}, error) {
		if value, ok := c.Peek(key); ok {
			return value, nil
		}
		value, loadErr := load(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		c.Add(key, value)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Remove removes a value from the cache by the provided key.
func (c *LRUCache[K, V]) Remove(key K) bool {
	removed := c.lru.Remove(key)
	c.metrics.SetAmount(c.lru.Len())
	return removed
}

// Purge clears the cache. Removed entries are not counted as evictions.
func (c *LRUCache[K, V]) Purge() {
	c.lru.Purge()
	c.metrics.SetAmount(0)
}

// Keys returns the keys from the oldest to the newest.
func (c *LRUCache[K, V]) Keys() []K {
	rawKeys := c.lru.Keys()
	keys := make([]K, 0, len(rawKeys))
	for _, k := range rawKeys {
		keys = append(keys, k.(K))
	}
	return keys
}

// Len returns the number of items in the cache.
func (c *LRUCache[K, V]) Len() int {
	return c.lru.Len()
}
