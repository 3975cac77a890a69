// internal/server/dispatcher.go
//
// Per-request pipeline for everything that is not /metrics or /healthz.
//
// Context
// -------
// The dispatcher owns one request from parse to write:
//
//  1. OPTIONS returns the default CORS headers with an empty 200.
//  2. /static/<file> is served from paths.static, ahead of routing and the
//     middleware chain.
//  3. The router resolves the API route.  An unmatched path falls back to a
//     front-end page: "/" is index.html, anything else pages/<path>.html.
//     With no page either, the reply is 404 "API not found".
//  4. The middleware chain runs; a terminal response ends the request.
//  5. The handler runs.  Its value becomes the envelope data, web.Coded
//     chooses its own code, and an error maps through internal/apperr.
//  6. Finalizers rewrite the body (desensitizing), then the response is
//     written once.
//
// A panic anywhere in 3–6 is recovered into a 500 envelope.
//
// Instrumentation
// ---------------
//   • INFO access line per request: method, path, status, duration, IP,
//     user, browser, and device.
//   • ERROR on handler failures that map to 500 and on recovered panics.
//   • adminkit_requests_total and adminkit_request_duration_seconds.
//
// Notes
// -----
//   • File lookups clean the path against "/" before joining, so "../"
//     never escapes the static root.
//   • Oxford commas, two spaces after periods.
package server

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/apperr"
	"github.com/yanizio/adminkit/internal/metrics"
	"github.com/yanizio/adminkit/internal/middleware"
	"github.com/yanizio/adminkit/internal/requestinfo"
	"github.com/yanizio/adminkit/internal/router"
	"github.com/yanizio/adminkit/internal/web"
)

// Options tunes the dispatcher.
type Options struct {
	StaticDir  string
	CSRFCookie string
	TrustProxy bool
	Debug      bool
}

// Dispatcher is the http.Handler for API and page requests.
type Dispatcher struct {
	routes *router.Router
	chain  middleware.Chain
	opts   Options
}

// NewDispatcher wires routes and chain.
func NewDispatcher(routes *router.Router, chain middleware.Chain, opts Options) *Dispatcher {
	if opts.CSRFCookie == "" {
		opts.CSRFCookie = web.CSRFHeader
	}
	return &Dispatcher{routes: routes, chain: chain, opts: opts}
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp := web.NewResponse()
	var req *web.Request

	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("panic in request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			msg := "Internal server error"
			if d.opts.Debug {
				msg = fmt.Sprint(rec)
			}
			resp = web.NewResponse().Reply(http.StatusInternalServerError, msg, nil)
		}
		if err := resp.WriteTo(w); err != nil {
			zap.L().Debug("write response", zap.Error(err))
		}
		d.observe(r, req, resp.Status, time.Since(start))
	}()

	if r.Method == http.MethodOptions {
		return
	}
	if rel, ok := strings.CutPrefix(r.URL.Path, "/static/"); ok {
		d.serveFile(resp, rel)
		return
	}

	req = web.NewRequest(r, d.clientAddr(r), d.opts.CSRFCookie)
	match, err := d.routes.Match(r.Method, r.URL.EscapedPath())
	if errors.Is(err, router.ErrRouteNotFound) {
		d.servePage(resp, r.URL.Path)
		return
	}
	req.Params = match.Params

	if out := d.chain.Run(req, resp); out != nil {
		resp = out
		return
	}
	d.reply(resp, req, match.Handler)
	d.chain.Finalize(req, resp)
}

func (d *Dispatcher) reply(resp *web.Response, req *web.Request, h web.Handler) {
	result, err := h(req)
	if err != nil {
		kind := apperr.KindOf(err)
		if !kind.Public() {
			zap.L().Error("handler failed",
				zap.String("method", req.Method), zap.String("path", req.Path), zap.Error(err))
		}
		resp.Reply(kind.Status(), apperr.Message(err, d.opts.Debug), nil)
		return
	}
	if c, ok := result.(web.Coded); ok {
		msg := "success"
		if c.Code != http.StatusOK {
			msg = "failed"
		}
		resp.Reply(c.Code, msg, c.Data)
		return
	}
	resp.Reply(http.StatusOK, "success", result)
}

func (d *Dispatcher) clientAddr(r *http.Request) string {
	if ri := requestinfo.FromContext(r.Context()); ri != nil && ri.IP != "" {
		return ri.IP
	}
	return requestinfo.ClientIP(r, d.opts.TrustProxy)
}

// servePage answers an unrouted path with a front-end page or a 404.
func (d *Dispatcher) servePage(resp *web.Response, p string) {
	rel := "index.html"
	if p != "/" {
		rel = path.Join("pages", strings.TrimPrefix(p, "/")+".html")
	}
	if !d.loadFile(resp, rel) {
		resp.Reply(http.StatusNotFound, "API not found", nil)
	}
}

func (d *Dispatcher) serveFile(resp *web.Response, rel string) {
	if !d.loadFile(resp, rel) {
		resp.Status = http.StatusNotFound
		resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
		resp.Body = []byte("404 Not Found")
	}
}

// loadFile reads rel under the static root into resp.  It reports false
// when the file does not exist or is a directory.
func (d *Dispatcher) loadFile(resp *web.Response, rel string) bool {
	if d.opts.StaticDir == "" {
		return false
	}
	full := filepath.Join(d.opts.StaticDir, filepath.FromSlash(path.Clean("/"+rel)))
	fi, err := os.Stat(full)
	if err != nil || fi.IsDir() {
		return false
	}
	body, err := os.ReadFile(full)
	if err != nil {
		zap.L().Warn("static read", zap.String("file", full), zap.Error(err))
		return false
	}
	ct := mime.TypeByExtension(filepath.Ext(full))
	if ct == "" {
		ct = "application/octet-stream"
	}
	resp.Status = http.StatusOK
	resp.Header.Set("Content-Type", ct)
	resp.Body = body
	return true
}

func (d *Dispatcher) observe(r *http.Request, req *web.Request, status int, took time.Duration) {
	metrics.RequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
	metrics.RequestDuration.WithLabelValues(r.Method).Observe(took.Seconds())

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Duration("took", took),
	}
	if req != nil {
		fields = append(fields, zap.String("ip", req.ClientAddr), zap.String("user", req.Username()))
	}
	if ri := requestinfo.FromContext(r.Context()); ri != nil {
		fields = append(fields, zap.String("browser", ri.Browser), zap.String("device", ri.Device))
	}
	zap.L().Info("request", fields...)
}
