// Package cache provides the lookup caches owned by a batch run: resolved
// player names and per-game clip mappings.
package cache

import (
	"context"
	"sync"

	"gamelog/ingestion/internal/metrics"
)

// Cache stores string values by key. Implementations must be safe for
// concurrent use. A miss is reported through the boolean, never an error:
// a failing cache degrades to refetching.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Option configures a MemoryCache
type Option func(*MemoryCache)

// WithMaxSize bounds the number of entries kept. Zero means unbounded.
func WithMaxSize(n int) Option {
	return func(c *MemoryCache) {
		c.maxSize = n
	}
}

// WithName sets the label used for hit/miss metrics
func WithName(name string) Option {
	return func(c *MemoryCache) {
		c.name = name
	}
}

// MemoryCache is an in-process cache that lives for one batch run.
// When full, the oldest inserted entry is evicted.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
	order   []string
	maxSize int
	name    string
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache(opts ...Option) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]string),
		name:    "memory",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		metrics.RecordCacheHit(c.name)
	} else {
		metrics.RecordCacheMiss(c.name)
	}
	return v, ok
}

// Set stores value under key
func (c *MemoryCache) Set(_ context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if c.maxSize > 0 && len(c.entries) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = value
}

// Len returns the number of cached entries
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Noop never stores anything. Useful in tests that must observe every lookup.
type Noop struct{}

// Get always misses
func (Noop) Get(context.Context, string) (string, bool) { return "", false }

// Set discards the value
func (Noop) Set(context.Context, string, string) {}
