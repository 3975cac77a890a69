// internal/middleware/throttle.go
//
// Throttle and Debounce share one shape: a last-seen map keyed by
// (client, path, method), pruned on every check once an entry is idle for
// ten windows.  They differ in scope and in what a repeat gets back.
//
//   • Throttle: every method but OPTIONS, static paths exempt.  A repeat
//     inside the window is a 429.
//   • Debounce: POST, PUT, and DELETE only.  A repeat inside the window is
//     answered 200 "Request accepted, processing..." and never reaches the
//     handler, so its effect is dropped.
//
// With the default windows (throttle 1 s, debounce 0.5 s) throttle runs
// first and answers every repeat Debounce would have seen.

package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yanizio/adminkit/internal/web"
)

type lastSeen struct {
	mu     sync.Mutex
	window time.Duration
	now    Clock
	seen   map[string]time.Time
}

func newLastSeen(window time.Duration, now Clock) *lastSeen {
	return &lastSeen{window: window, now: orNow(now), seen: map[string]time.Time{}}
}

// hit records key and reports whether the previous hit was within window.
// A repeat does not move the timestamp.
func (l *lastSeen) hit(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if last, ok := l.seen[key]; ok && now.Sub(last) < l.window {
		return true
	}
	l.seen[key] = now
	for k, t := range l.seen {
		if now.Sub(t) > 10*l.window {
			delete(l.seen, k)
		}
	}
	return false
}

func (l *lastSeen) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}

func requestKey(req *web.Request) string {
	return req.ClientAddr + "_" + req.Path + "_" + req.Method
}

// Throttle rejects repeats of the same request within its window.
type Throttle struct{ *lastSeen }

// NewThrottle returns a Throttle with the given window.
func NewThrottle(window time.Duration, now Clock) *Throttle {
	return &Throttle{newLastSeen(window, now)}
}

func (*Throttle) Name() string { return "throttle" }

// Handle implements Middleware.
func (t *Throttle) Handle(req *web.Request, resp *web.Response) *web.Response {
	if req.Method == http.MethodOptions || isStatic(req.Path) {
		return nil
	}
	if !t.hit(requestKey(req)) {
		return nil
	}
	secs := strconv.FormatFloat(t.window.Seconds(), 'f', -1, 64)
	return resp.Reply(http.StatusTooManyRequests, fmt.Sprintf("Request too frequent, please wait %s seconds", secs), nil)
}

// Debounce swallows repeats of the same write within its window.
type Debounce struct{ *lastSeen }

// NewDebounce returns a Debounce with the given window.
func NewDebounce(window time.Duration, now Clock) *Debounce {
	return &Debounce{newLastSeen(window, now)}
}

func (*Debounce) Name() string { return "debounce" }

// Handle implements Middleware.
func (d *Debounce) Handle(req *web.Request, resp *web.Response) *web.Response {
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil
	}
	if isStatic(req.Path) || !d.hit(requestKey(req)) {
		return nil
	}
	return resp.Reply(http.StatusOK, "Request accepted, processing...", nil)
}
