// Package cache provides a bounded in-memory key/value store with
// per-entry expiry.
//
// Expiry is lazy: an expired entry is removed when it is next read, or by
// an explicit Cleanup sweep. MaybeCleanup throttles sweeps so callers can
// invoke it on every request without running a background timer.
package cache

import (
	"sync"
	"time"
)

// Defaults applied by New.
const (
	DefaultMaxEntries      = 100
	DefaultTTL             = time.Hour
	DefaultCleanupInterval = 5 * time.Minute
)

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

func (e entry[V]) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Stats is a point-in-time snapshot of cache usage.
type Stats struct {
	Size       int    `json:"size"`
	MaxEntries int    `json:"maxEntries"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
}

// Cache is a concurrency-safe TTL cache. When full, inserting a new key
// evicts the entry with the oldest insertion time.
type Cache[V any] struct {
	mu              sync.Mutex
	entries         map[string]entry[V]
	maxEntries      int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
	now             func() time.Time
	hits            uint64
	misses          uint64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	maxEntries      int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// WithMaxEntries bounds the number of stored entries.
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// WithDefaultTTL sets the TTL used by Set when ttl <= 0.
func WithDefaultTTL(d time.Duration) Option {
	return func(o *options) { o.defaultTTL = d }
}

// WithCleanupInterval sets the minimum spacing between MaybeCleanup sweeps.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) { o.cleanupInterval = d }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := options{
		maxEntries:      DefaultMaxEntries,
		defaultTTL:      DefaultTTL,
		cleanupInterval: DefaultCleanupInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxEntries <= 0 {
		o.maxEntries = DefaultMaxEntries
	}
	if o.defaultTTL <= 0 {
		o.defaultTTL = DefaultTTL
	}

	return &Cache[V]{
		entries:         make(map[string]entry[V], o.maxEntries),
		maxEntries:      o.maxEntries,
		defaultTTL:      o.defaultTTL,
		cleanupInterval: o.cleanupInterval,
		lastCleanup:     o.now(),
		now:             o.now,
	}
}

// Get returns the value for key. An expired entry is deleted and reported
// as absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		c.misses++
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key for ttl. A ttl <= 0 uses the default TTL.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = entry[V]{value: value, storedAt: c.now(), ttl: ttl}
}

// Has reports whether key holds an unexpired value.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return false
	}
	return true
}

// Delete removes key and reports whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry[V], c.maxEntries)
}

// Cleanup removes all expired entries and returns how many were removed.
func (c *Cache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cleanupLocked()
}

// MaybeCleanup runs Cleanup if the cleanup interval has elapsed since the
// previous sweep. It returns the number of entries removed.
func (c *Cache[V]) MaybeCleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.now().Sub(c.lastCleanup) < c.cleanupInterval {
		return 0
	}
	return c.cleanupLocked()
}

// Stats returns current usage figures.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:       len(c.entries),
		MaxEntries: c.maxEntries,
		Hits:       c.hits,
		Misses:     c.misses,
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *Cache[V]) cleanupLocked() int {
	now := c.now()
	c.lastCleanup = now

	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache[V]) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for key, e := range c.entries {
		if !found || e.storedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = key, e.storedAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}
