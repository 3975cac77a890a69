// internal/middleware/auth.go
//
// Bearer-token authentication and role-based authorisation.
//
// Context
// -------
// For every path not on the whitelist:
//
//  1. Read `Authorization: Bearer <token>`.  Missing → 401.
//  2. Verify the token.  Malformed, bad signature, and expired tokens get
//     distinct 401 messages.
//  3. Resolve the user.  Unknown or disabled users → 401.
//  4. Attach the principal to the request and its context.
//  5. Super-admin roles stop here.  Paths on the exempt list need only a
//     login.  Every other `/api/{resource}/{action}/…` path needs the
//     permission code `resource:action` bound to the caller's role, else
//     403.
//
// Whitelist and exempt entries match exactly or, when they end in `/*`, by
// prefix.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/auth"
	"github.com/yanizio/adminkit/internal/web"
)

// Verifier checks a bearer token.  *auth.Signer satisfies it.
type Verifier interface {
	Verify(token string) (auth.Claims, error)
}

// UserResolver loads the principal behind a verified token.  *acl.Store
// satisfies it.
type UserResolver interface {
	Resolve(ctx context.Context, userID int64) (*auth.Principal, error)
}

// PermissionSource answers role permission checks.  *acl.Store satisfies
// it.
type PermissionSource interface {
	Allowed(ctx context.Context, roleID int64, code string) (bool, error)
}

// Auth is the authentication and RBAC middleware.
type Auth struct {
	verify    Verifier
	users     UserResolver
	perms     PermissionSource
	whitelist []string
	exempt    []string
}

// NewAuth wires the collaborators and the two path lists.
func NewAuth(v Verifier, users UserResolver, perms PermissionSource, whitelist, exempt []string) *Auth {
	return &Auth{verify: v, users: users, perms: perms, whitelist: whitelist, exempt: exempt}
}

func (*Auth) Name() string { return "auth" }

// Handle implements Middleware.
func (a *Auth) Handle(req *web.Request, resp *web.Response) *web.Response {
	if matchPath(a.whitelist, req.Path) || isStatic(req.Path) {
		return nil
	}

	token, ok := bearer(req.Header.Get("Authorization"))
	if !ok {
		return resp.Reply(http.StatusUnauthorized, "Not logged in, please log in first", nil)
	}
	claims, err := a.verify.Verify(token)
	if err != nil {
		zap.L().Info("token rejected", zap.String("client", req.ClientAddr), zap.Error(err))
		return resp.Reply(http.StatusUnauthorized, tokenMessage(err), nil)
	}

	ctx := req.Context()
	p, err := a.users.Resolve(ctx, claims.UserID)
	switch {
	case errors.Is(err, auth.ErrUserDisabled):
		return resp.Reply(http.StatusUnauthorized, "User disabled", nil)
	case errors.Is(err, auth.ErrUnknownUser):
		return resp.Reply(http.StatusUnauthorized, "User not found", nil)
	case err != nil:
		zap.L().Error("resolve principal", zap.Int64("user_id", claims.UserID), zap.Error(err))
		return resp.Reply(http.StatusInternalServerError, "Internal server error", nil)
	}
	req.User = p
	req.WithContext(auth.WithPrincipal(ctx, p))

	if p.IsAdmin || matchPath(a.exempt, req.Path) {
		return nil
	}
	code, ok := PermissionCode(req.Path)
	if !ok {
		return nil
	}
	allowed, err := a.perms.Allowed(ctx, p.RoleID, code)
	if err != nil {
		zap.L().Error("permission lookup", zap.Int64("role_id", p.RoleID), zap.Error(err))
		return resp.Reply(http.StatusInternalServerError, "Internal server error", nil)
	}
	if !allowed {
		zap.L().Info("permission denied",
			zap.String("user", p.Username), zap.String("code", code), zap.String("path", req.Path))
		return resp.Reply(http.StatusForbidden, "Permission denied", nil)
	}
	return nil
}

// PermissionCode derives "resource:action" from /api/{resource}/{action}/….
func PermissionCode(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[0] != "api" || parts[1] == "" || parts[2] == "" {
		return "", false
	}
	return parts[1] + ":" + parts[2], true
}

func bearer(h string) (string, bool) {
	tok, ok := strings.CutPrefix(h, "Bearer ")
	tok = strings.TrimSpace(tok)
	return tok, ok && tok != ""
}

func tokenMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpired):
		return "Token expired, please log in again"
	case errors.Is(err, auth.ErrBadSignature):
		return "Invalid token signature"
	case errors.Is(err, auth.ErrMalformed):
		return "Malformed token"
	}
	return "Invalid login state, please log in again"
}
