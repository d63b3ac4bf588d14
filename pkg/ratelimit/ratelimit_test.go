package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestWindow(start time.Time) (*SlidingWindow, *time.Time) {
	clock := start
	w := NewSlidingWindow()
	w.now = func() time.Time { return clock }
	return w, &clock
}

func TestAllowWithinLimit(t *testing.T) {
	w, _ := newTestWindow(time.Unix(1000, 0))
	limit := Limit{MaxCalls: 3, Window: time.Minute}

	for i := 1; i <= 3; i++ {
		res := w.Allow("calc|user1", limit)
		assert.True(t, res.Allowed)
		assert.Equal(t, i, res.Current)
		assert.Equal(t, 3-i, res.Remaining)
	}
}

func TestRejectAtLimit(t *testing.T) {
	w, _ := newTestWindow(time.Unix(1000, 0))
	limit := Limit{MaxCalls: 2, Window: time.Minute}

	w.Allow("k", limit)
	w.Allow("k", limit)

	res := w.Allow("k", limit)
	assert.False(t, res.Allowed)
	assert.Equal(t, 2, res.Current)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, time.Minute, res.RetryAfter)
}

func TestWindowSlides(t *testing.T) {
	w, clock := newTestWindow(time.Unix(1000, 0))
	limit := Limit{MaxCalls: 2, Window: time.Minute}

	w.Allow("k", limit)
	*clock = clock.Add(30 * time.Second)
	w.Allow("k", limit)

	assert.False(t, w.Allow("k", limit).Allowed)

	// First call falls out of the window; one slot frees up.
	*clock = clock.Add(31 * time.Second)
	res := w.Allow("k", limit)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Current)
}

func TestRetryAfterShrinksOverTime(t *testing.T) {
	w, clock := newTestWindow(time.Unix(1000, 0))
	limit := Limit{MaxCalls: 1, Window: time.Minute}

	w.Allow("k", limit)
	*clock = clock.Add(45 * time.Second)

	res := w.Allow("k", limit)
	assert.False(t, res.Allowed)
	assert.Equal(t, 15*time.Second, res.RetryAfter)
}

func TestKeysAreIndependent(t *testing.T) {
	w, _ := newTestWindow(time.Unix(1000, 0))
	limit := Limit{MaxCalls: 1, Window: time.Minute}

	assert.True(t, w.Allow("calc|alice", limit).Allowed)
	assert.True(t, w.Allow("calc|bob", limit).Allowed)
	assert.False(t, w.Allow("calc|alice", limit).Allowed)
}

func TestZeroLimitMeansUnlimited(t *testing.T) {
	w, _ := newTestWindow(time.Unix(1000, 0))

	for i := 0; i < 100; i++ {
		assert.True(t, w.Allow("k", Limit{}).Allowed)
	}
}

func TestReset(t *testing.T) {
	w, _ := newTestWindow(time.Unix(1000, 0))
	limit := Limit{MaxCalls: 1, Window: time.Minute}

	w.Allow("k", limit)
	assert.False(t, w.Allow("k", limit).Allowed)

	w.Reset("k")
	assert.True(t, w.Allow("k", limit).Allowed)
}

func TestSweepDropsStaleKeys(t *testing.T) {
	w, clock := newTestWindow(time.Unix(1000, 0))
	limit := Limit{MaxCalls: 5, Window: time.Minute}

	w.Allow("stale", limit)
	*clock = clock.Add(2 * time.Hour)
	w.Allow("fresh", limit)

	w.Sweep(time.Hour)

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.NotContains(t, w.calls, "stale")
	assert.Contains(t, w.calls, "fresh")
}
