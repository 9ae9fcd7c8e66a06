// Package cache provides a TTL-based memoization layer for idempotent read
// queries, keyed by a deterministic serialization of their parameters.
// A Cache is an explicit instance owned by the component that fetches data;
// there is no package-level singleton.
package cache

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/partshub/fitment/pkg/metrics"
)

// TTLs observed in the dashboard: listings refresh every five minutes,
// higher-churn vehicle search results every two.
const (
	DefaultTTL  = 5 * time.Minute
	VolatileTTL = 2 * time.Minute
)

type entry[V any] struct {
	val     V
	savedAt time.Time
}

// Cache memoizes values for a fixed TTL. Expired entries are evicted lazily
// on the next Get for their key. A single mutex guards the backing map;
// writes are last-write-wins.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry[V]
	now     func() time.Time // for testing

	hits   *metrics.Counter
	misses *metrics.Counter
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithCounters wires hit/miss counters into the cache.
func WithCounters[V any](hits, misses *metrics.Counter) Option[V] {
	return func(c *Cache[V]) {
		c.hits = hits
		c.misses = misses
	}
}

// New creates a Cache with the given TTL (DefaultTTL when non-positive).
func New[V any](ttl time.Duration, opts ...Option[V]) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached value for key. A miss is a normal outcome, not an
// error; the caller fetches and calls Set. An expired entry is treated as
// absent and removed.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.now().Sub(e.savedAt) > c.ttl {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		var zero V
		if c.misses != nil {
			c.misses.Inc()
		}
		return zero, false
	}
	if c.hits != nil {
		c.hits.Inc()
	}
	return e.val, true
}

// Set stores a value with the current timestamp, overwriting any prior entry.
func (c *Cache[V]) Set(key string, val V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{val: val, savedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate removes one key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll removes every entry. Called after any mutation of the
// underlying data so reads never outlive it beyond the TTL.
func (c *Cache[V]) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
}

// Len returns the number of entries, including not-yet-evicted expired ones.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// KeyFor builds a deterministic cache key from a namespace and parameters.
// Parameter fields are sorted by name before serialization, so semantically
// identical parameter sets produce identical keys regardless of field order.
func KeyFor(namespace string, params map[string]any) string {
	if len(params) == 0 {
		return namespace
	}
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(namespace)
	for i, k := range names {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		fmt.Fprintf(&b, "%s=%v", k, params[k])
	}
	return b.String()
}
