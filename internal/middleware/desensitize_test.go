package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yanizio/adminkit/internal/web"
)

func TestMask(t *testing.T) {
	cases := []struct{ key, in, want string }{
		{"phone", "13812341234", "138****1234"},
		{"phone", "1381234", "1381234"},
		{"email", "test@example.com", "te****@example.com"},
		{"email", "ab@x.com", "ab@x.com"},
		{"email", "no-at-sign", "no-at-sign"},
		{"id_card", "110101199001011234", "110101199001011234"},
	}
	for _, c := range cases {
		if got := Mask(c.key, c.in); got != c.want {
			t.Errorf("Mask(%s, %q) = %q, want %q", c.key, c.in, got, c.want)
		}
	}
}

func TestDesensitizerWalksData(t *testing.T) {
	d := NewDesensitizer([]string{"phone", "email"}, []string{"/api/user/info"})
	resp := web.NewResponse().Reply(200, "success", map[string]any{
		"list": []any{
			map[string]any{"username": "bob", "phone": "13812341234", "email": "bob.s@x.com", "id": 7},
			map[string]any{"phone": 13812341234},
		},
		"total": 2,
	})
	d.Finalize(request("GET", "/api/user/list", "c"), resp)

	want := `{"code":200,"data":{"list":[{"email":"bo****@x.com","id":7,"phone":"138****1234","username":"bob"},{"phone":13812341234}],"total":2},"msg":"success"}`
	if got := string(resp.Body); got != want {
		t.Fatalf("body =\n%s\nwant\n%s", got, want)
	}
}

func TestDesensitizerSkips(t *testing.T) {
	d := NewDesensitizer([]string{"phone"}, []string{"/api/user/info"})
	data := map[string]any{"phone": "13812341234"}

	resp := web.NewResponse().Reply(200, "success", data)
	before := string(resp.Body)
	d.Finalize(request("GET", "/api/user/info", "c"), resp)
	if string(resp.Body) != before {
		t.Fatal("skip path was rewritten")
	}

	resp = web.NewResponse()
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	resp.Body = []byte(`{"data":{"phone":"13812341234"}}`)
	d.Finalize(request("GET", "/api/x/y", "c"), resp)
	if string(resp.Body) != `{"data":{"phone":"13812341234"}}` {
		t.Fatal("non-JSON response was rewritten")
	}

	resp = web.NewResponse()
	resp.Body = []byte(`not json`)
	d.Finalize(request("GET", "/api/x/y", "c"), resp)
	if string(resp.Body) != "not json" {
		t.Fatal("malformed body was rewritten")
	}
}

func TestSecurityAndHTTPS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(204) })

	rec := httptest.NewRecorder()
	Security(true)(ok).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" || rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("headers = %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	ForceHTTPS(false)(ok).ServeHTTP(rec, httptest.NewRequest("GET", "http://admin.example.com/api/x?a=1", nil))
	if rec.Code != http.StatusPermanentRedirect || rec.Header().Get("Location") != "https://admin.example.com/api/x?a=1" {
		t.Fatalf("redirect = %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	ForceHTTPS(false)(ok).ServeHTTP(rec, httptest.NewRequest("GET", "http://localhost:8080/", nil))
	if rec.Code != 204 {
		t.Fatalf("localhost redirected: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "http://admin.example.com/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	ForceHTTPS(true)(ok).ServeHTTP(rec, r)
	if rec.Code != 204 {
		t.Fatalf("proxied https redirected: %d", rec.Code)
	}
}

func TestChainShortCircuitsAndFinalizes(t *testing.T) {
	clk := newClock()
	chain := Chain{NewThrottle(1e9, clk.now), NewDesensitizer([]string{"phone"}, nil)}

	req := request("GET", "/api/user/list", "c")
	resp := web.NewResponse()
	if chain.Run(req, resp) != nil {
		t.Fatal("first pass rejected")
	}
	resp.Reply(200, "success", map[string]any{"phone": "13812341234"})
	chain.Finalize(req, resp)
	if got := string(resp.Body); got != `{"code":200,"data":{"phone":"138****1234"},"msg":"success"}` {
		t.Fatalf("finalized body = %s", got)
	}

	if out := chain.Run(request("GET", "/api/user/list", "c"), web.NewResponse()); out == nil || out.Status != 429 {
		t.Fatal("chain did not stop at throttle")
	}
}
