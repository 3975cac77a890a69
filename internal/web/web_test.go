package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yanizio/adminkit/internal/apperr"
)

func TestNewRequestJSONBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/user/add?page=2&page=3", strings.NewReader(`{"username":"alice","age":7}`))
	r.Header.Set("Content-Type", "application/json")
	r.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "cookie-tok"})

	req := NewRequest(r, "10.0.0.1", "X-CSRF-Token")
	if req.Query["page"] != "2" {
		t.Fatalf("query first value = %q", req.Query["page"])
	}
	if req.Param("username") != "alice" || req.Param("age") != "7" {
		t.Fatalf("body params = %v", req.Body)
	}
	if req.CSRFToken != "cookie-tok" {
		t.Fatalf("csrf fallback = %q", req.CSRFToken)
	}

	req.Params["page"] = "9"
	if req.Param("page") != "9" {
		t.Fatal("path param must win over query")
	}
	if req.IntParam("page", 1) != 9 || req.IntParam("missing", 4) != 4 {
		t.Fatal("IntParam")
	}
}

func TestNewRequestBadBodies(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{not json`))
	r.Header.Set("Content-Type", "application/json")
	if req := NewRequest(r, "", "c"); len(req.Body) != 0 {
		t.Fatalf("malformed JSON should give empty body, got %v", req.Body)
	}

	big := `{"a":"` + strings.Repeat("x", MaxBody) + `"}`
	r = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(big))
	r.Header.Set("Content-Type", "application/json")
	if req := NewRequest(r, "", "c"); len(req.Body) != 0 {
		t.Fatal("oversized body should be dropped")
	}

	r = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("a=1&a=2&b=3"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req := NewRequest(r, "", "c")
	if req.Body["a"] != "1" || req.Body["b"] != "3" {
		t.Fatalf("form body = %v", req.Body)
	}
}

func TestCSRFHeaderWins(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/x", nil)
	r.Header.Set(CSRFHeader, "hdr")
	r.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "cookie"})
	if got := NewRequest(r, "", "X-CSRF-Token").CSRFToken; got != "hdr" {
		t.Fatalf("csrf = %q", got)
	}
}

type addUser struct {
	Username string `json:"username" validate:"required,username"`
	Password string `json:"password" validate:"required,password"`
	Phone    string `json:"phone"    validate:"omitempty,phone"`
	Email    string `json:"email"    validate:"omitempty,email"`
	RoleID   int64  `json:"role_id"`
}

func TestBind(t *testing.T) {
	cases := []struct {
		body map[string]any
		want string
	}{
		{map[string]any{"username": "alice", "password": "abc123", "role_id": json.Number("2")}, ""},
		{map[string]any{"password": "abc123"}, "username is required"},
		{map[string]any{"username": "a!", "password": "abc123"}, "username must be 3-32 letters, digits, or underscores"},
		{map[string]any{"username": "alice", "password": "abcdef"}, "password must be 6-20 characters with letters and digits"},
		{map[string]any{"username": "alice", "password": "abc123", "phone": "12345678901"}, "invalid phone number"},
		{map[string]any{"username": "alice", "password": "abc123", "email": "nope"}, "invalid email address"},
		{map[string]any{"username": "alice", "password": "abc123", "role_id": "x"}, "role_id has the wrong type"},
	}
	for _, c := range cases {
		var dst addUser
		err := (&Request{Body: c.body}).Bind(&dst)
		if c.want == "" {
			if err != nil {
				t.Errorf("%v: unexpected %v", c.body, err)
			}
			continue
		}
		if err == nil || err.Error() != c.want || apperr.KindOf(err) != apperr.Validation {
			t.Errorf("%v: err = %v, want %q", c.body, err, c.want)
		}
	}
}

func TestValidPassword(t *testing.T) {
	for p, want := range map[string]bool{
		"abc123": true, "ab12": false, "123456": false, "abcdef": false,
		strings.Repeat("a1", 10): true, strings.Repeat("a1", 11): false,
	} {
		if ValidPassword(p) != want {
			t.Errorf("ValidPassword(%q) != %v", p, want)
		}
	}
}

func TestResponseWrite(t *testing.T) {
	resp := NewResponse().Reply(http.StatusForbidden, "角色 <x>", nil)
	resp.SetCookie(&http.Cookie{Name: "t", Value: "v", Path: "/"})
	rec := httptest.NewRecorder()
	if err := resp.WriteTo(rec); err != nil {
		t.Fatal(err)
	}
	if rec.Code != 403 {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"code":403,"msg":"角色 <x>"}` {
		t.Fatalf("body = %s", got)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" || rec.Header().Get("Set-Cookie") != "t=v; Path=/" {
		t.Fatalf("headers = %v", rec.Header())
	}
	if !resp.IsJSON() {
		t.Fatal("IsJSON")
	}
}

func TestIDParam(t *testing.T) {
	req := &Request{Params: map[string]string{"id": "12", "bad": "0"}}
	if id, err := req.IDParam("id"); err != nil || id != 12 {
		t.Fatalf("id = %d, %v", id, err)
	}
	if _, err := req.IDParam("bad"); apperr.KindOf(err) != apperr.Validation {
		t.Fatalf("bad id err = %v", err)
	}
}
