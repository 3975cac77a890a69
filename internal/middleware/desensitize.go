// internal/middleware/desensitize.go
//
// Desensitizer masks sensitive fields in JSON responses after the handler
// has run.
//
// Only the envelope's `data` member is walked, recursively through objects
// and arrays.  A configured key whose value is a string is masked:
//
//	phone  11 characters → first 3 + "****" + last 4    13812341234 → 138****1234
//	email  local part > 2 characters → first 2 + "****"  test@x.com → te****@x.com
//
// Values that do not qualify pass unchanged, as do non-string values and
// keys with no rule.  A
// body that fails to parse is logged at WARN and left alone.

package middleware

import (
	"bytes"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/web"
)

// Desensitizer is a Finalizer; Handle is a no-op.
type Desensitizer struct {
	fields map[string]struct{}
	skip   []string
}

// NewDesensitizer masks fields on every path except skip.
func NewDesensitizer(fields, skip []string) *Desensitizer {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return &Desensitizer{fields: set, skip: skip}
}

func (*Desensitizer) Name() string { return "desensitize" }

// Handle implements Middleware.
func (*Desensitizer) Handle(*web.Request, *web.Response) *web.Response { return nil }

// Finalize implements Finalizer.
func (d *Desensitizer) Finalize(req *web.Request, resp *web.Response) {
	if len(d.fields) == 0 || matchPath(d.skip, req.Path) || !resp.IsJSON() || len(resp.Body) == 0 {
		return
	}
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	var env map[string]any
	if err := dec.Decode(&env); err != nil {
		zap.L().Warn("desensitize: response is not a JSON object", zap.String("path", req.Path), zap.Error(err))
		return
	}
	data, ok := env["data"]
	if !ok {
		return
	}
	env["data"] = d.walk(data)
	resp.JSON(resp.Status, env)
}

func (d *Desensitizer) walk(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			if s, ok := val.(string); ok {
				if _, sensitive := d.fields[k]; sensitive {
					x[k] = Mask(k, s)
					continue
				}
			}
			x[k] = d.walk(val)
		}
	case []any:
		for i := range x {
			x[i] = d.walk(x[i])
		}
	}
	return v
}

// Mask applies the masking rule for key to s.
func Mask(key, s string) string {
	r := []rune(s)
	switch key {
	case "phone":
		if len(r) == 11 {
			return string(r[:3]) + "****" + string(r[7:])
		}
	case "email":
		local, domain, ok := strings.Cut(s, "@")
		if !ok {
			return s
		}
		if lr := []rune(local); len(lr) > 2 {
			local = string(lr[:2]) + "****"
		}
		return local + "@" + domain
	}
	return s
}
