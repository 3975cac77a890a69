package middleware

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yanizio/adminkit/internal/web"
)

func fixedTokens(s *CSRFStore) {
	n := 0
	s.newToken = func() string {
		n++
		return "tok-" + string(rune('0'+n))
	}
}

func TestCSRFIssuesOnGet(t *testing.T) {
	s := NewCSRFStore("X-CSRF-Token", newClock().now)
	fixedTokens(s)

	resp := web.NewResponse()
	if out := s.Handle(request("GET", "/api/user/list", "c"), resp); out != nil {
		t.Fatal("GET must never be rejected")
	}
	cookie := resp.Header.Get("Set-Cookie")
	if !strings.HasPrefix(cookie, "X-CSRF-Token=tok-1") || !strings.Contains(cookie, "Max-Age=86400") ||
		!strings.Contains(cookie, "Path=/") {
		t.Fatalf("cookie = %q", cookie)
	}

	// A known token is not re-issued.
	req := request("GET", "/api/user/list", "c")
	req.CSRFToken = "tok-1"
	resp = web.NewResponse()
	s.Handle(req, resp)
	if resp.Header.Get("Set-Cookie") != "" {
		t.Fatal("known token re-issued")
	}
}

func TestCSRFRejectsWrites(t *testing.T) {
	s := NewCSRFStore("X-CSRF-Token", newClock().now)
	fixedTokens(s)
	s.Handle(request("GET", "/", "c"), web.NewResponse())

	for _, tok := range []string{"", "forged"} {
		req := request("POST", "/api/user/add", "c")
		req.CSRFToken = tok
		out := s.Handle(req, web.NewResponse())
		if out == nil || out.Status != 403 || envelope(t, out).Msg != "CSRF token invalid or missing" {
			t.Fatalf("token %q not rejected", tok)
		}
	}

	req := request("DELETE", "/api/user/delete/3", "c")
	req.CSRFToken = "tok-1"
	if s.Handle(req, web.NewResponse()) != nil {
		t.Fatal("valid token rejected")
	}
}

func TestCSRFExpiryAndRefresh(t *testing.T) {
	clk := newClock()
	s := NewCSRFStore("X-CSRF-Token", clk.now)
	fixedTokens(s)
	s.Handle(request("GET", "/", "c"), web.NewResponse()) // tok-1
	s.Handle(request("GET", "/", "d"), web.NewResponse()) // tok-2

	// Using tok-1 at 20 h refreshes it.
	clk.advance(20 * time.Hour)
	req := request("POST", "/api/x/y", "c")
	req.CSRFToken = "tok-1"
	if s.Handle(req, web.NewResponse()) != nil {
		t.Fatal("fresh token rejected")
	}

	// At 25 h tok-2 has expired but tok-1 is only 5 h old.
	clk.advance(5 * time.Hour)
	req = request("POST", "/api/x/y", "d")
	req.CSRFToken = "tok-2"
	if out := s.Handle(req, web.NewResponse()); out == nil || out.Status != 403 {
		t.Fatal("expired token accepted")
	}
	req = request("POST", "/api/x/y", "c")
	req.CSRFToken = "tok-1"
	if s.Handle(req, web.NewResponse()) != nil {
		t.Fatal("refreshed token rejected")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
}

func TestCSRFSweep(t *testing.T) {
	clk := newClock()
	s := NewCSRFStore("X-CSRF-Token", clk.now)
	fixedTokens(s)
	s.Handle(request("GET", "/", "a"), web.NewResponse())
	s.Handle(request("GET", "/", "b"), web.NewResponse())

	clk.advance(TokenTTL + time.Minute)
	if n := s.Sweep(); n != 2 || s.Len() != 0 {
		t.Fatalf("swept %d, left %d", n, s.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()
	cancel()
	<-done
}
