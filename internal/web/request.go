// internal/web/request.go
//
// Request: the dispatcher's parsed view of one HTTP request.
//
// Context
// -------
// Middleware and handlers never touch *http.Request directly.  NewRequest
// reads the body once and exposes:
//
//   • Query   – flat map, first value wins;
//   • Body    – JSON object (numbers kept as json.Number) or urlencoded form,
//               otherwise empty;
//   • Cookies – flat map;
//   • CSRFToken – `X-CSRF-Token` header, else the CSRF cookie;
//   • Params  – path placeholders, filled after routing;
//   • User    – set once by the auth middleware.
//
// Param merges the three sources with precedence path > query > body.
//
// Notes
// -----
//   • Bodies are capped at MaxBody bytes; a larger or malformed body reads as
//     empty, matching how an unparseable body is treated.
//   • Oxford commas, two spaces after periods.

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yanizio/adminkit/internal/auth"
)

// MaxBody caps request bodies.
const MaxBody = 1 << 20

// CSRFHeader is the request header that echoes the CSRF token.
const CSRFHeader = "X-CSRF-Token"

// Request is one parsed API request.
type Request struct {
	Method     string
	Path       string
	RawQuery   string
	Header     http.Header
	Query      map[string]string
	Body       map[string]any
	Cookies    map[string]string
	CSRFToken  string
	ClientAddr string
	Params     map[string]string
	User       *auth.Principal

	ctx context.Context
}

// NewRequest parses r.  clientAddr is resolved by the caller (proxy
// policy lives in requestinfo).
func NewRequest(r *http.Request, clientAddr, csrfCookie string) *Request {
	req := &Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		RawQuery:   r.URL.RawQuery,
		Header:     r.Header,
		Query:      map[string]string{},
		Body:       map[string]any{},
		Cookies:    map[string]string{},
		Params:     map[string]string{},
		ClientAddr: clientAddr,
		ctx:        r.Context(),
	}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			req.Query[k] = v[0]
		}
	}
	for _, c := range r.Cookies() {
		if _, seen := req.Cookies[c.Name]; !seen {
			req.Cookies[c.Name] = c.Value
		}
	}
	req.CSRFToken = r.Header.Get(CSRFHeader)
	if req.CSRFToken == "" {
		req.CSRFToken = req.Cookies[csrfCookie]
	}
	if r.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBody+1))
		if err == nil && len(raw) <= MaxBody {
			req.Body = parseBody(r.Header.Get("Content-Type"), raw)
		}
	}
	return req
}

func parseBody(contentType string, raw []byte) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case "application/json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var m map[string]any
		if dec.Decode(&m) == nil && m != nil {
			return m
		}
	case "application/x-www-form-urlencoded":
		vals, err := url.ParseQuery(string(raw))
		if err != nil {
			return out
		}
		for k, v := range vals {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
	}
	return out
}

// Context returns the request context.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext replaces the request context.
func (r *Request) WithContext(ctx context.Context) { r.ctx = ctx }

// Param returns name from path params, then query, then body.
func (r *Request) Param(name string) string {
	if v, ok := r.Params[name]; ok {
		return v
	}
	if v, ok := r.Query[name]; ok {
		return v
	}
	if v, ok := r.Body[name]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// Has reports whether the body carries key, even with a null value.
func (r *Request) Has(key string) bool {
	_, ok := r.Body[key]
	return ok
}

// IntParam parses Param(name), returning def when absent or not a number.
func (r *Request) IntParam(name string, def int) int {
	v := strings.TrimSpace(r.Param(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// IDParam parses a positive integer path parameter.
func (r *Request) IDParam(name string) (int64, error) {
	n, err := strconv.ParseInt(r.Params[name], 10, 64)
	if err != nil || n < 1 {
		return 0, invalidf("%s must be a positive integer", name)
	}
	return n, nil
}

// Username is a convenience for log fields; "" when anonymous.
func (r *Request) Username() string {
	if r.User == nil {
		return ""
	}
	return r.User.Username
}
