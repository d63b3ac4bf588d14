// Package ratelimit implements the sliding-window call limiter backing
// per-tool rate limits.
package ratelimit

import (
	"sync"
	"time"
)

// Limit describes a sliding-window quota: at most MaxCalls within Window.
type Limit struct {
	MaxCalls int
	Window   time.Duration
}

// CheckResult reports the outcome of an admission check.
type CheckResult struct {
	Allowed    bool
	Current    int
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// SlidingWindow tracks call timestamps per key. A key is typically
// "<tool>|<caller>" so quotas are independent per caller.
type SlidingWindow struct {
	mu    sync.Mutex
	calls map[string][]time.Time
	now   func() time.Time
}

func NewSlidingWindow() *SlidingWindow {
	return &SlidingWindow{
		calls: make(map[string][]time.Time),
		now:   time.Now,
	}
}

// Allow checks the quota for key and, when admitted, records the call.
// Timestamps older than the window are pruned on every check.
func (l *SlidingWindow) Allow(key string, limit Limit) CheckResult {
	if limit.MaxCalls <= 0 || limit.Window <= 0 {
		return CheckResult{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-limit.Window)

	recent := pruneBefore(l.calls[key], cutoff)

	if len(recent) >= limit.MaxCalls {
		l.calls[key] = recent
		return CheckResult{
			Allowed:    false,
			Current:    len(recent),
			Limit:      limit.MaxCalls,
			Remaining:  0,
			RetryAfter: recent[0].Add(limit.Window).Sub(now),
		}
	}

	recent = append(recent, now)
	l.calls[key] = recent

	return CheckResult{
		Allowed:   true,
		Current:   len(recent),
		Limit:     limit.MaxCalls,
		Remaining: limit.MaxCalls - len(recent),
	}
}

// Reset forgets all recorded calls for key.
func (l *SlidingWindow) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.calls, key)
}

// Sweep drops keys whose every recorded call is older than maxAge.
// Callers run this periodically to bound memory for one-off callers.
func (l *SlidingWindow) Sweep(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxAge)
	for key, stamps := range l.calls {
		if len(stamps) == 0 || stamps[len(stamps)-1].Before(cutoff) {
			delete(l.calls, key)
		}
	}
}

func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	return append([]time.Time(nil), stamps[idx:]...)
}
