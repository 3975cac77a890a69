package middleware

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/yanizio/adminkit/internal/web"
)

type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Unix(1_700_000_000, 0)} }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func request(method, path, client string) *web.Request {
	return &web.Request{
		Method:     method,
		Path:       path,
		ClientAddr: client,
		Header:     map[string][]string{},
		Query:      map[string]string{},
		Body:       map[string]any{},
		Cookies:    map[string]string{},
		Params:     map[string]string{},
	}
}

func envelope(t *testing.T, r *web.Response) web.Envelope {
	t.Helper()
	var env web.Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		t.Fatalf("decode %s: %v", r.Body, err)
	}
	return env
}
