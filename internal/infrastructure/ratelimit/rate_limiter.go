package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles actions per user and action name.
type RateLimiter struct {
	limits  map[string]rate.Limit
	bursts  map[string]int
	def     rate.Limit
	burst   int
	entries map[string]*entry
	mutex   sync.Mutex
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing perSecond actions with the given
// burst for any action without a specific limit.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limits:  make(map[string]rate.Limit),
		bursts:  make(map[string]int),
		def:     rate.Limit(perSecond),
		burst:   burst,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// SetLimit overrides the limit for one action name.
func (rl *RateLimiter) SetLimit(action string, perSecond float64, burst int) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.limits[action] = rate.Limit(perSecond)
	rl.bursts[action] = burst
}

// Allow consumes a token if available. When it is not, the returned duration is
// how long the caller must wait for the next one.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	e, ok := rl.entries[key]
	if !ok {
		limit, burst := rl.def, rl.burst
		if l, ok := rl.limits[action]; ok {
			limit, burst = l, rl.bursts[action]
		}
		e = &entry{limiter: rate.NewLimiter(limit, burst)}
		rl.entries[key] = e
	}
	e.lastSeen = now
	rl.mutex.Unlock()

	res := e.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup drops limiters that have been idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := rl.now().Add(-idle)
	for key, e := range rl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(rl.entries, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()
}
