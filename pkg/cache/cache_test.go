package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, opts Options) *Cache[string] {
	t.Helper()
	if opts.SweepInterval == 0 {
		opts.SweepInterval = -1
	}
	c, err := New[string](opts)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t, Options{})

	c.Set("a", "1")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiredEntryIsMiss(t *testing.T) {
	c := newTestCache(t, Options{})

	c.SetWithTTL("a", "1", 20*time.Millisecond)
	_, ok := c.Get("a")
	assert.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestNonPositiveTTLNeverExpires(t *testing.T) {
	c := newTestCache(t, Options{})

	c.SetWithTTL("a", "1", -1)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("a")
	assert.True(t, ok)
}

func TestCapacityEvictsOldestFirst(t *testing.T) {
	c := newTestCache(t, Options{MaxKeys: 3})

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	c.Set("d", "4")

	_, ok := c.Get("a")
	assert.False(t, ok)
	for _, k := range []string{"b", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
}

func TestEvictOldestBeyond(t *testing.T) {
	c := newTestCache(t, Options{MaxKeys: 100})

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
	}

	removed := c.EvictOldestBeyond(4)
	assert.Equal(t, 6, removed)
	assert.Equal(t, 4, c.Len())

	// The most recent four survive.
	for i := 6; i < 10; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok)
	}
	_, ok := c.Get("k0")
	assert.False(t, ok)
}

func TestFlushAll(t *testing.T) {
	c := newTestCache(t, Options{})

	c.Set("a", "1")
	c.Set("b", "2")
	c.FlushAll()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	c := newTestCache(t, Options{})

	c.Set("a", "1")
	c.Get("a")
	c.Get("a")
	c.Get("nope")

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestSweepRemovesExpired(t *testing.T) {
	c := newTestCache(t, Options{SweepInterval: 10 * time.Millisecond})

	c.SetWithTTL("a", "1", 15*time.Millisecond)
	c.Set("b", "2")

	assert.Eventually(t, func() bool {
		return c.Len() == 1
	}, time.Second, 5*time.Millisecond)
}
