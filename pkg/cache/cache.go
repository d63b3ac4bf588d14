// Package cache provides a bounded TTL key/value store used by the
// retrieval engine and arbitrary callers.
//
// Capacity bounding and oldest-first eviction are delegated to an LRU;
// expiry is tracked per entry so callers can override the default TTL on
// individual sets. A background sweep drops expired entries so memory is
// reclaimed even for keys that are never read again.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultTTL           = 10 * time.Minute
	DefaultMaxKeys       = 10000
	DefaultSweepInterval = 2 * time.Minute
)

// Options configures a Cache.
type Options struct {
	// DefaultTTL applies to Set; zero means DefaultTTL (10m).
	// A negative DefaultTTL disables expiry for Set.
	DefaultTTL time.Duration

	// MaxKeys bounds the number of live entries. On overflow the oldest
	// entries are discarded first.
	MaxKeys int

	// SweepInterval is how often expired entries are swept out.
	// Zero means DefaultSweepInterval; negative disables the sweeper.
	SweepInterval time.Duration
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
	expiresAt  time.Time // zero means no expiry
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// Cache is a thread-safe TTL store with a hard capacity bound.
type Cache[V any] struct {
	mu         sync.Mutex
	lru        *lru.Cache[string, entry[V]]
	defaultTTL time.Duration

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	done     chan struct{}
	closeOne sync.Once
}

// New creates a cache and starts its sweep goroutine.
func New[V any](opts Options) (*Cache[V], error) {
	if opts.MaxKeys <= 0 {
		opts.MaxKeys = DefaultMaxKeys
	}
	if opts.DefaultTTL == 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.SweepInterval == 0 {
		opts.SweepInterval = DefaultSweepInterval
	}

	backing, err := lru.New[string, entry[V]](opts.MaxKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache backing store: %w", err)
	}

	c := &Cache[V]{
		lru:        backing,
		defaultTTL: opts.DefaultTTL,
		done:       make(chan struct{}),
	}

	if opts.SweepInterval > 0 {
		go c.sweepLoop(opts.SweepInterval)
	}

	return c, nil
}

// Get returns the live value for key. Expired entries count as misses and
// are removed on access.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	e, ok := c.lru.Get(key)
	if ok && e.expired(time.Now()) {
		c.lru.Remove(key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL.
// A non-positive ttl stores the entry without expiry.
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	now := time.Now()
	e := entry[V]{value: value, insertedAt: now}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}

	c.mu.Lock()
	evicted := c.lru.Add(key, e)
	c.mu.Unlock()

	if evicted {
		c.evictions.Add(1)
	}
}

// FlushAll removes every entry.
func (c *Cache[V]) FlushAll() {
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
}

// Len returns the number of stored entries, including not-yet-swept
// expired ones.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// EvictOldestBeyond bulk-discards the oldest entries so that at most keep
// remain. Used by the embedding cache to bound sweep cost: one pass instead
// of per-entry eviction.
func (c *Cache[V]) EvictOldestBeyond(keep int) int {
	if keep < 0 {
		keep = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	excess := c.lru.Len() - keep
	if excess <= 0 {
		return 0
	}

	// Keys are ordered oldest to newest.
	keys := c.lru.Keys()
	for _, key := range keys[:excess] {
		c.lru.Remove(key)
	}
	c.evictions.Add(int64(excess))
	return excess
}

// Stats returns a snapshot of the hit/miss/eviction counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Close stops the sweep goroutine. The cache stays usable after Close;
// expired entries are then only dropped lazily on Get.
func (c *Cache[V]) Close() {
	c.closeOne.Do(func() {
		close(c.done)
	})
}

func (c *Cache[V]) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache[V]) sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && e.expired(now) {
			c.lru.Remove(key)
		}
	}
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
