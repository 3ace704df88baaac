// Package governor bounds outbound scrape behavior: a rolling-window rate
// limiter keyed by caller identifier and a proxy rotation shared across
// scrapes. All mutable state is internally synchronized; no module-level
// globals.
package governor

import (
	"context"
	"sync"
	"time"
)

// waitBuffer is the fixed safety margin added to each recomputed wait so a
// woken waiter does not race the window edge.
const waitBuffer = 100 * time.Millisecond

// RateLimiter allows at most max requests per identifier inside any rolling
// window-length interval. Timestamps are kept ordered per identifier.
type RateLimiter struct {
	mu     sync.Mutex
	max    int
	window time.Duration
	hits   map[string][]time.Time

	now func() time.Time // injectable clock for tests
}

// NewRateLimiter creates a limiter allowing max requests per window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:    max,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow prunes timestamps older than the window for id. At capacity it
// denies without mutating state; otherwise it appends now and allows.
func (rl *RateLimiter) Allow(id string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	kept := rl.prune(id, now)

	if len(kept) >= rl.max {
		rl.hits[id] = kept
		return false
	}

	rl.hits[id] = append(kept, now)
	return true
}

// Wait blocks until a request for id is allowed or the context ends. The
// wait time is recomputed each round as the remainder of the window since
// the oldest surviving timestamp, plus a fixed safety buffer. A long wait
// is normal operation, not an error.
func (rl *RateLimiter) Wait(ctx context.Context, id string) error {
	for {
		if rl.Allow(id) {
			return nil
		}

		d := rl.retryAfter(id) + waitBuffer
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// retryAfter returns how long until the oldest surviving timestamp for id
// leaves the window.
func (rl *RateLimiter) retryAfter(id string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	kept := rl.prune(id, now)
	rl.hits[id] = kept

	if len(kept) == 0 {
		return 0
	}
	elapsed := now.Sub(kept[0])
	if elapsed >= rl.window {
		return 0
	}
	return rl.window - elapsed
}

// prune returns the id's timestamps still inside the window. Caller holds
// the lock.
func (rl *RateLimiter) prune(id string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	stamps := rl.hits[id]
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
