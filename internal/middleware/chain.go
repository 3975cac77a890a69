// internal/middleware/chain.go
//
// Ordered, short-circuiting middleware chain for the API dispatcher.
//
// Context
// -------
// Each concern is an explicit state object built once at startup.  The
// dispatcher runs the chain before the handler:
//
//	RateLimit → CSRF → Auth → Throttle → Debounce
//
// A middleware returns nil to continue or a terminal *web.Response to stop
// the request.  Middleware that also implement Finalizer run again after the
// handler, in chain order, and may rewrite the response body (the
// desensitizer is the only one today).
//
// Instrumentation
// ---------------
//   • Every short-circuit increments adminkit_middleware_rejections_total
//     and logs a DEBUG line with the middleware name and path.
//
// Notes
// -----
//   • Every state object takes a clock so tests can drive time.
//   • Oxford commas, two spaces after periods.
package middleware

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/metrics"
	"github.com/yanizio/adminkit/internal/web"
)

// Clock returns the current time.
type Clock func() time.Time

func orNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// Middleware inspects a request before the handler runs.
type Middleware interface {
	Name() string
	Handle(req *web.Request, resp *web.Response) *web.Response
}

// Finalizer post-processes the response after the handler.
type Finalizer interface {
	Finalize(req *web.Request, resp *web.Response)
}

// Chain is the ordered middleware list.
type Chain []Middleware

// Run executes the chain and returns the first terminal response, or nil.
func (c Chain) Run(req *web.Request, resp *web.Response) *web.Response {
	for _, m := range c {
		if out := m.Handle(req, resp); out != nil {
			metrics.MiddlewareRejections.WithLabelValues(m.Name()).Inc()
			zap.L().Debug("request short-circuited",
				zap.String("middleware", m.Name()),
				zap.String("method", req.Method),
				zap.String("path", req.Path),
				zap.Int("status", out.Status))
			return out
		}
	}
	return nil
}

// Finalize runs every Finalizer in chain order.
func (c Chain) Finalize(req *web.Request, resp *web.Response) {
	for _, m := range c {
		if f, ok := m.(Finalizer); ok {
			f.Finalize(req, resp)
		}
	}
}

// matchPath reports whether path equals a pattern or, for patterns ending in
// "/*", starts with the pattern's prefix.
func matchPath(patterns []string, path string) bool {
	for _, p := range patterns {
		if p == path {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, "*"); ok && strings.HasSuffix(prefix, "/") && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func isStatic(path string) bool { return strings.HasPrefix(path, "/static/") }
