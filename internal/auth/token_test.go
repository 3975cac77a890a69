package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewSigner("secret", time.Hour, func() time.Time { return now })

	tok, exp, err := s.Issue(42, "alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if strings.Count(tok, ".") != 2 || strings.Contains(tok, "=") {
		t.Fatalf("token shape: %q", tok)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Errorf("exp = %v", exp)
	}
	c, err := s.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.UserID != 42 || c.Username != "alice" {
		t.Fatalf("claims = %+v", c)
	}
}

func TestVerifyFailures(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewSigner("secret", time.Hour, func() time.Time { return now })
	tok, _, _ := s.Issue(1, "root")

	other := NewSigner("other", time.Hour, func() time.Time { return now })
	late := NewSigner("secret", time.Hour, func() time.Time { return now.Add(2 * time.Hour) })

	cases := []struct {
		name   string
		signer *Signer
		token  string
		want   error
	}{
		{"two segments", s, "a.b", ErrMalformed},
		{"garbage base64", s, "!!.??.**", ErrMalformed},
		{"wrong secret", other, tok, ErrBadSignature},
		{"tampered payload", s, tamper(tok), ErrBadSignature},
		{"expired", late, tok, ErrExpired},
	}
	for _, c := range cases {
		if _, err := c.signer.Verify(c.token); !errors.Is(err, c.want) {
			t.Errorf("%s: err = %v, want %v", c.name, err, c.want)
		}
	}
}

func tamper(tok string) string {
	parts := strings.Split(tok, ".")
	p, _ := enc.DecodeString(parts[1])
	p = []byte(strings.Replace(string(p), `"user_id":1`, `"user_id":2`, 1))
	parts[1] = enc.EncodeToString(p)
	return strings.Join(parts, ".")
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("Admin@123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(h, "Admin@123") {
		t.Error("correct password rejected")
	}
	if CheckPassword(h, "admin@123") {
		t.Error("wrong password accepted")
	}
	if CheckPassword("not-a-hash", "x") {
		t.Error("malformed hash accepted")
	}
}
