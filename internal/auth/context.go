// internal/auth/context.go
//
// Principal carried through a request once the bearer token is verified.
//
// Usage
// -----
//     // Auth middleware, after verification.
//     req.User = p
//     ctx = auth.WithPrincipal(ctx, p)
//
//     // Anywhere downstream that only has a context.
//     p, ok := auth.FromContext(ctx)
//
// Notes
// -----
// • The middleware sets the principal once; handlers treat it as read-only.
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"
	"errors"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	RoleID   int64  `json:"role_id"`
	RoleCode string `json:"role_code"`
	IsAdmin  bool   `json:"is_admin"`
}

// principalKey is unexported to avoid context-key collisions.
type principalKey struct{}

// WithPrincipal returns a new context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext extracts the principal.  It returns (nil, false) when the
// request is anonymous.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// UserID is a shortcut for FromContext(ctx).UserID.
func UserID(ctx context.Context) (int64, bool) {
	p, ok := FromContext(ctx)
	if !ok {
		return 0, false
	}
	return p.UserID, true
}

// Errors a principal resolver reports for a valid token whose user can no
// longer sign in.
var (
	ErrUnknownUser  = errors.New("auth: user not found")
	ErrUserDisabled = errors.New("auth: user disabled")
)
