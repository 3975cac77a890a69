// internal/router/router.go
//
// Path-template router for the JSON API.
//
// Context
// -------
// Components register handlers against templates such as
// `/api/user/edit/{id}` or `/api/notify/read/{id:int}`.  Each template is
// compiled once into an anchored regular expression:
//
//   • the template is split on "/";
//   • literal segments are regexp.QuoteMeta'd;
//   • a segment that is exactly `{name}` or `{name:type}` becomes `([^/]+)`;
//   • segments are re-joined with "/" and wrapped in `^…$`.
//
// The type annotation is recorded on the route but not enforced; handlers
// coerce their own parameters.  There is no trailing-slash normalisation.
//
// Matching walks the templates registered for the method in registration
// order and returns the first hit, so overlapping templates must be ordered
// by the registrant.  Re-registering an existing (method, template) pair
// replaces the handler in place, keeping its original position, and logs a
// warning.
//
// Notes
// -----
//   • chi remains the outer net/http mux (metrics, health, middleware); this
//     router only resolves API paths inside the dispatcher.
//   • Oxford commas, two spaces after periods.
package router

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/web"
)

// ErrRouteNotFound is returned by Match when no template fits.
var ErrRouteNotFound = errors.New("router: route not found")

// Methods accepted by Register.
var Methods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

var placeholder = regexp.MustCompile(`^\{([A-Za-z0-9_]+)(?::([A-Za-z0-9_]+))?\}$`)

// Param is one placeholder of a template.
type Param struct {
	Name string
	Type string
}

// Route is an immutable compiled registration.
type Route struct {
	Method   string
	Template string
	Params   []Param
	Handler  web.Handler

	re *regexp.Regexp
}

// Match is the result of a successful lookup.
type Match struct {
	Route   *Route
	Handler web.Handler
	Params  map[string]string
	Query   map[string]string
}

// Router is safe for concurrent Match calls; registration normally happens
// before serving starts but is locked as well.
type Router struct {
	mu     sync.RWMutex
	routes map[string][]*Route
}

// New returns an empty Router.
func New() *Router {
	r := &Router{routes: make(map[string][]*Route, len(Methods))}
	for _, m := range Methods {
		r.routes[m] = nil
	}
	return r
}

// Compile turns a template into its matcher and parameter list.
func Compile(template string) (*regexp.Regexp, []Param, error) {
	parts := strings.Split(template, "/")
	var params []Param
	for i, part := range parts {
		if m := placeholder.FindStringSubmatch(part); m != nil {
			typ := m[2]
			if typ == "" {
				typ = "str"
			}
			params = append(params, Param{Name: m[1], Type: typ})
			parts[i] = `([^/]+)`
			continue
		}
		if strings.ContainsAny(part, "{}") {
			return nil, nil, fmt.Errorf("router: malformed placeholder %q in %s", part, template)
		}
		parts[i] = regexp.QuoteMeta(part)
	}
	re, err := regexp.Compile("^" + strings.Join(parts, "/") + "$")
	if err != nil {
		return nil, nil, err
	}
	return re, params, nil
}

// Register compiles template and stores it under method.
func (r *Router) Register(method, template string, h web.Handler) error {
	method = strings.ToUpper(method)
	r.mu.Lock()
	defer r.mu.Unlock()

	list, ok := r.routes[method]
	if !ok {
		return fmt.Errorf("router: unsupported method %q", method)
	}
	re, params, err := Compile(template)
	if err != nil {
		return err
	}
	rt := &Route{Method: method, Template: template, Params: params, Handler: h, re: re}

	for i, existing := range list {
		if existing.Template == template {
			zap.L().Warn("route already registered, overwriting",
				zap.String("method", method), zap.String("template", template))
			list[i] = rt
			return nil
		}
	}
	r.routes[method] = append(list, rt)
	zap.L().Debug("route registered", zap.String("method", method), zap.String("template", template))
	return nil
}

// Match resolves rawPath (which may carry a query string) for method.  The
// query map is returned even when no route matches.
func (r *Router) Match(method, rawPath string) (Match, error) {
	path, rawQuery, _ := strings.Cut(rawPath, "?")
	if p, err := url.PathUnescape(path); err == nil {
		path = p
	}
	query := ParseQuery(rawQuery)

	r.mu.RLock()
	list := r.routes[strings.ToUpper(method)]
	r.mu.RUnlock()

	for _, rt := range list {
		m := rt.re.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		params := make(map[string]string, len(rt.Params))
		for i, p := range rt.Params {
			params[p.Name] = m[i+1]
		}
		return Match{Route: rt, Handler: rt.Handler, Params: params, Query: query}, nil
	}
	return Match{Query: query}, ErrRouteNotFound
}

// Routes lists registrations grouped by method in registration order.
func (r *Router) Routes() []*Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Route
	for _, m := range Methods {
		out = append(out, r.routes[m]...)
	}
	return out
}

// ParseQuery flattens a query string, keeping the first value of each key.
func ParseQuery(raw string) map[string]string {
	out := map[string]string{}
	vals, _ := url.ParseQuery(raw)
	for k, v := range vals {
		if len(v) > 0 {
			out[k] = v[0]
		} else {
			out[k] = ""
		}
	}
	return out
}
