package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", Forbid("no"))
	if KindOf(err) != Forbidden {
		t.Fatalf("KindOf = %v, want Forbidden", KindOf(err))
	}
	if KindOf(errors.New("boom")) != Internal {
		t.Fatalf("plain error should be Internal")
	}
}

func TestMessageRedaction(t *testing.T) {
	raw := errors.New("dial tcp 10.0.0.1:3306: refused")
	if got := Message(raw, false); got != "Internal server error" {
		t.Fatalf("non-debug message = %q", got)
	}
	if got := Message(raw, true); got != raw.Error() {
		t.Fatalf("debug message = %q", got)
	}
	if got := Message(Invalid("username is required"), false); got != "username is required" {
		t.Fatalf("validation message = %q", got)
	}
	if got := Message(Wrap(Integrity, errors.New("row vanished")), false); got != "Internal server error" {
		t.Fatalf("integrity message = %q", got)
	}
}

func TestStatus(t *testing.T) {
	cases := map[Kind]int{
		Validation: 400, Unauthorized: 401, Forbidden: 403,
		NotFound: 404, RateLimited: 429, Integrity: 500, Exhausted: 500, Internal: 500,
	}
	for k, want := range cases {
		if got := k.Status(); got != want {
			t.Errorf("Kind %d status = %d, want %d", k, got, want)
		}
	}
}
