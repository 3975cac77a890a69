// internal/middleware/ratelimit.go
//
// Per-client sliding-window rate limiter.
//
// Each client address keeps the timestamps of its accepted requests inside
// the last Window.  A request is rejected with 429 once the window already
// holds Max entries; rejected requests are not recorded.  The wait reported
// in the message and in Retry-After is the time until the oldest entry
// leaves the window.
//
// Stale keys are pruned lazily: the caller's own slice on every check and
// the whole map at most once per window.

package middleware

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/web"
)

// RateWindow is the fixed limiter window.
const RateWindow = 60 * time.Second

// RateLimiter rejects clients that exceed Max requests per RateWindow.
type RateLimiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	now       Clock
	hits      map[string][]time.Time
	lastSweep time.Time
}

// NewRateLimiter returns a limiter allowing max requests per minute.
func NewRateLimiter(max int, now Clock) *RateLimiter {
	if max < 1 {
		max = 1
	}
	now = orNow(now)
	return &RateLimiter{max: max, window: RateWindow, now: now, hits: map[string][]time.Time{}, lastSweep: now()}
}

func (*RateLimiter) Name() string { return "rate_limit" }

// Handle implements Middleware.
func (l *RateLimiter) Handle(req *web.Request, resp *web.Response) *web.Response {
	now := l.now()
	key := req.ClientAddr

	l.mu.Lock()
	ts := prune(l.hits[key], now.Add(-l.window))
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}
	if len(ts) >= l.max {
		l.hits[key] = ts
		wait := int((l.window - now.Sub(ts[0])) / time.Second)
		l.mu.Unlock()
		if wait < 1 {
			wait = 1
		}
		zap.L().Warn("rate limit exceeded",
			zap.String("client", key), zap.String("path", req.Path), zap.Int("count", len(ts)))
		resp.Header.Set("Retry-After", strconv.Itoa(wait))
		return resp.Reply(429, fmt.Sprintf("Too many requests, please try again after %d seconds", wait), nil)
	}
	l.hits[key] = append(ts, now)
	l.mu.Unlock()
	return nil
}

// sweep drops every key whose newest entry has left the window.  Caller
// holds mu.
func (l *RateLimiter) sweep(now time.Time) {
	cutoff := now.Add(-l.window)
	for k, ts := range l.hits {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(l.hits, k)
		}
	}
	l.lastSweep = now
}

// Keys reports how many clients are tracked.
func (l *RateLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// prune drops leading timestamps at or before cutoff.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
}
