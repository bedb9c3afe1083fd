// Package cache provides a generic TTL memoisation store keyed by string.
//
// An entry older than the TTL is never returned: a lookup past expiry is a
// miss and evicts the key. Writes replace whole entries.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = 300 * time.Second

// Entry is a cached value and the time it was captured.
type Entry[T any] struct {
	Key        string
	Value      T
	CapturedAt time.Time
}

// Cache memoises values of type T for a fixed TTL.
type Cache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]Entry[T]
}

// Option configures a Cache.
type Option[T any] func(*Cache[T])

// WithClock overrides the time source. Useful for testing.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Cache[T]) {
		c.now = now
	}
}

// New creates an empty cache.
func New[T any](ttl time.Duration, opts ...Option[T]) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache[T]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]Entry[T]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value for key.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.expired(e) {
		delete(c.entries, key)
		return zero, false
	}
	return e.Value, true
}

// Set stores value under key, stamped with the current time.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry[T]{Key: key, Value: value, CapturedAt: c.now()}
}

// Delete removes key.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge removes every entry.
func (c *Cache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry[T])
}

// EvictExpired drops every expired entry and returns how many were removed.
func (c *Cache[T]) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured time-to-live.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// expired reports whether e is past its TTL (caller must hold lock).
func (c *Cache[T]) expired(e Entry[T]) bool {
	return c.now().Sub(e.CapturedAt) >= c.ttl
}
