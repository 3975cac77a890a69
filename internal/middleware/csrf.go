// internal/middleware/csrf.go
//
// CSRF token store and check.
//
// Context
// -------
// Tokens are random UUIDs kept in process memory with their issue time and
// the issuing client address.
//
//   • GET and OPTIONS never fail.  When the presented token is absent or
//     unknown a fresh one is issued through a `Set-Cookie` header
//     (Max-Age 86400, Path /).
//   • Every other method must present a known token, from the
//     `X-CSRF-Token` header or the cookie of the same name, else 403.
//     A valid token's timestamp is refreshed on use.
//   • Tokens older than TokenTTL are rejected on access.  An opportunistic
//     sweep runs from Handle at most once per SweepEvery, and Run drives the
//     same sweep from a ticker so an idle server still sheds memory.
//
// Notes
// -----
//   • The client address is recorded but not compared; clients behind NAT
//     or mobile networks change address mid-session.
//   • Oxford commas, two spaces after periods.

package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/web"
)

const (
	TokenTTL   = 24 * time.Hour
	SweepEvery = time.Hour
)

type csrfToken struct {
	createdAt  time.Time
	clientAddr string
}

// CSRFStore holds issued tokens.
type CSRFStore struct {
	mu        sync.Mutex
	cookie    string
	now       Clock
	tokens    map[string]csrfToken
	lastSweep time.Time
	newToken  func() string
}

// NewCSRFStore returns an empty store issuing cookies named cookie.
func NewCSRFStore(cookie string, now Clock) *CSRFStore {
	now = orNow(now)
	return &CSRFStore{
		cookie:    cookie,
		now:       now,
		tokens:    map[string]csrfToken{},
		lastSweep: now(),
		newToken:  uuid.NewString,
	}
}

func (*CSRFStore) Name() string { return "csrf" }

// Handle implements Middleware.
func (s *CSRFStore) Handle(req *web.Request, resp *web.Response) *web.Response {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= SweepEvery {
		s.sweepLocked(now)
	}
	known := s.validLocked(req.CSRFToken, now)

	if req.Method == http.MethodGet || req.Method == http.MethodOptions {
		if !known {
			tok := s.newToken()
			s.tokens[tok] = csrfToken{createdAt: now, clientAddr: req.ClientAddr}
			resp.SetCookie(&http.Cookie{Name: s.cookie, Value: tok, Path: "/", MaxAge: int(TokenTTL / time.Second)})
		}
		return nil
	}

	if !known {
		zap.L().Warn("csrf token invalid", zap.String("client", req.ClientAddr), zap.String("path", req.Path))
		return resp.Reply(http.StatusForbidden, "CSRF token invalid or missing", nil)
	}
	s.tokens[req.CSRFToken] = csrfToken{createdAt: now, clientAddr: req.ClientAddr}
	return nil
}

// validLocked reports whether tok is known and fresh, deleting it when
// expired.
func (s *CSRFStore) validLocked(tok string, now time.Time) bool {
	if tok == "" {
		return false
	}
	rec, ok := s.tokens[tok]
	if !ok {
		return false
	}
	if now.Sub(rec.createdAt) > TokenTTL {
		delete(s.tokens, tok)
		return false
	}
	return true
}

// Sweep evicts expired tokens and returns how many were dropped.
func (s *CSRFStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *CSRFStore) sweepLocked(now time.Time) int {
	n := 0
	for tok, rec := range s.tokens {
		if now.Sub(rec.createdAt) > TokenTTL {
			delete(s.tokens, tok)
			n++
		}
	}
	s.lastSweep = now
	zap.L().Debug("csrf sweep", zap.Int("evicted", n), zap.Int("remaining", len(s.tokens)))
	return n
}

// Len reports how many tokens are held.
func (s *CSRFStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Run sweeps every SweepEvery until ctx is cancelled.
func (s *CSRFStore) Run(ctx context.Context) {
	t := time.NewTicker(SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
