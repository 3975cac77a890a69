// internal/auth/token.go
//
// HS256 bearer tokens.
//
// Context
// -------
// Tokens are the three-segment JWS compact form:
//
//	base64url(header) "." base64url(payload) "." base64url(HMAC-SHA256)
//
// with unpadded URL-safe base64 throughout.  The header is always
// {"alg":"HS256","typ":"JWT"}; the payload carries `user_id`, `username`,
// and `exp` (Unix seconds).  The signature covers the first two segments
// with the process-wide secret from `security.jwt_secret`.
//
// Verify reports distinct errors for a malformed token, a bad signature,
// and an expired token so the auth middleware can answer with a
// cause-specific 401.
//
// Notes
// -----
// • Signatures compare with hmac.Equal.
// • Oxford commas, two spaces after periods.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrMalformed    = errors.New("auth: malformed token")
	ErrBadSignature = errors.New("auth: bad token signature")
	ErrExpired      = errors.New("auth: token expired")
)

// Claims is the token payload.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Exp      int64  `json:"exp"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

var enc = base64.RawURLEncoding

// Signer issues and verifies tokens with one shared secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner builds a Signer.  now may be nil (time.Now).
func NewSigner(secret string, ttl time.Duration, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue signs a token for the user, valid for the configured TTL.
func (s *Signer) Issue(userID int64, username string) (string, time.Time, error) {
	exp := s.now().Add(s.ttl)
	h, err := json.Marshal(header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", time.Time{}, err
	}
	p, err := json.Marshal(Claims{UserID: userID, Username: username, Exp: exp.Unix()})
	if err != nil {
		return "", time.Time{}, err
	}
	signing := enc.EncodeToString(h) + "." + enc.EncodeToString(p)
	return signing + "." + enc.EncodeToString(s.sign(signing)), exp, nil
}

// Verify checks structure, signature, and expiry, in that order.
func (s *Signer) Verify(token string) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformed
	}
	rawHeader, err := enc.DecodeString(parts[0])
	if err != nil {
		return Claims{}, ErrMalformed
	}
	var h header
	if err := json.Unmarshal(rawHeader, &h); err != nil || !strings.EqualFold(h.Alg, "HS256") {
		return Claims{}, ErrMalformed
	}
	sig, err := enc.DecodeString(parts[2])
	if err != nil {
		return Claims{}, ErrMalformed
	}
	if !hmac.Equal(sig, s.sign(parts[0]+"."+parts[1])) {
		return Claims{}, ErrBadSignature
	}
	rawPayload, err := enc.DecodeString(parts[1])
	if err != nil {
		return Claims{}, ErrMalformed
	}
	var c Claims
	if err := json.Unmarshal(rawPayload, &c); err != nil || c.UserID == 0 {
		return Claims{}, ErrMalformed
	}
	if s.now().Unix() >= c.Exp {
		return Claims{}, ErrExpired
	}
	return c, nil
}

func (s *Signer) sign(signing string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(signing))
	return mac.Sum(nil)
}
