package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:5555"
	r.Header.Set("X-Forwarded-For", "garbage, 203.0.113.9, 10.0.0.1")

	if got := ClientIP(r, false); got != "192.0.2.7" {
		t.Fatalf("untrusted ip = %q", got)
	}
	if got := ClientIP(r, true); got != "203.0.113.9" {
		t.Fatalf("trusted ip = %q", got)
	}

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-Ip", "198.51.100.4")
	if got := ClientIP(r, true); got != "198.51.100.4" {
		t.Fatalf("x-real-ip = %q", got)
	}
}

func TestParseUA(t *testing.T) {
	info := ParseUA("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	if info.Browser != "Chrome" || info.Device != "Desktop" || info.IsBot {
		t.Fatalf("chrome/mac = %+v", info)
	}
	if info.Version != "125" {
		t.Fatalf("version = %q", info.Version)
	}

	bot := ParseUA("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	if !bot.IsBot {
		t.Fatalf("googlebot = %+v", bot)
	}
}

func TestEnrichAttachesInfo(t *testing.T) {
	var got *Info
	h := Enrich(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	r.RemoteAddr = "192.0.2.1:1"
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got == nil || got.IP != "192.0.2.1" || got.Timestamp.IsZero() {
		t.Fatalf("info = %+v", got)
	}
	if InitGeo("") != nil || CloseGeo() != nil {
		t.Fatal("empty geo path should be a no-op")
	}
}
