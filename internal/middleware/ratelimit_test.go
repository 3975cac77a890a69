package middleware

import (
	"testing"
	"time"

	"github.com/yanizio/adminkit/internal/web"
)

func TestRateLimiterWindow(t *testing.T) {
	clk := newClock()
	l := NewRateLimiter(3, clk.now)

	for i := 0; i < 3; i++ {
		if out := l.Handle(request("GET", "/api/x", "1.1.1.1"), web.NewResponse()); out != nil {
			t.Fatalf("request %d rejected", i)
		}
		clk.advance(10 * time.Second)
	}

	out := l.Handle(request("GET", "/api/x", "1.1.1.1"), web.NewResponse())
	if out == nil || out.Status != 429 {
		t.Fatal("fourth request within the window should be rejected")
	}
	// Oldest hit was 30 s ago, so it leaves the window in 30 s.
	if got := envelope(t, out).Msg; got != "Too many requests, please try again after 30 seconds" {
		t.Fatalf("msg = %q", got)
	}
	if out.Header.Get("Retry-After") != "30" {
		t.Fatalf("Retry-After = %q", out.Header.Get("Retry-After"))
	}

	// Other clients are independent.
	if l.Handle(request("GET", "/api/x", "2.2.2.2"), web.NewResponse()) != nil {
		t.Fatal("second client rejected")
	}

	// Once the oldest hit leaves the window a slot opens.
	clk.advance(31 * time.Second)
	if l.Handle(request("GET", "/api/x", "1.1.1.1"), web.NewResponse()) != nil {
		t.Fatal("slot should have opened")
	}
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	clk := newClock()
	l := NewRateLimiter(10, clk.now)
	l.Handle(request("GET", "/", "a"), web.NewResponse())
	l.Handle(request("GET", "/", "b"), web.NewResponse())

	clk.advance(2 * RateWindow)
	l.Handle(request("GET", "/", "c"), web.NewResponse())
	if got := l.Keys(); got != 1 {
		t.Fatalf("keys = %d, want 1", got)
	}
}
