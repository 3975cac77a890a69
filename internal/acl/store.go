// internal/acl/store.go
//
// Query helpers for role-based access control.
//
// Context
// -------
// The RBAC model lives in four tables:
//
//	users            (id PK, username, status, role_id → roles.id, …)
//	roles            (id PK, name, code, is_admin, …)
//	permissions      (id PK, code "resource:action", parent_id, …)
//	role_permissions (id PK, role_id, permission_id)
//
// The auth middleware needs answers to two questions on every request:
//  1. Who is user X, which role do they hold, and may they sign in?
//     → `Resolve()`, one JOIN per request, never cached, so disabling a
//     user takes effect immediately.
//  2. Does role R carry permission code C?  → `Allowed()`, backed by a
//     per-role code set in an expiring LRU.  Cold loads for the same role
//     are collapsed through singleflight.
//
// Components that change bindings call `Invalidate` / `InvalidateAll`.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
// • Max line length 100 columns.
package acl

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/adminkit/internal/auth"
	"github.com/yanizio/adminkit/internal/cache"
	"github.com/yanizio/adminkit/internal/metrics"
)

// Defaults for the permission cache.
const (
	CacheTTL     = 30 * time.Second
	CacheEntries = 256
)

// Querier is satisfied by *orm.DB.
type Querier interface {
	Select(ctx context.Context, dest any, query string, args ...any) error
	GetValue(ctx context.Context, dest any, query string, args ...any) error
}

// Store answers principal and permission questions.
type Store struct {
	q     Querier
	codes *cache.LRU[int64, map[string]struct{}]
	sfg   singleflight.Group
}

// NewStore wraps q.  ttl <= 0 selects CacheTTL.
func NewStore(q Querier, ttl time.Duration, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = CacheTTL
	}
	return &Store{q: q, codes: cache.New[int64, map[string]struct{}](CacheEntries, ttl, now)}
}

type principalRow struct {
	ID       int64          `db:"id"`
	Username string         `db:"username"`
	Status   int            `db:"status"`
	RoleID   sql.NullInt64  `db:"role_id"`
	RoleCode sql.NullString `db:"role_code"`
	IsAdmin  sql.NullInt64  `db:"is_admin"`
}

// Resolve loads the principal for userID.  It returns auth.ErrUnknownUser
// or auth.ErrUserDisabled when the user may not sign in.
func (s *Store) Resolve(ctx context.Context, userID int64) (*auth.Principal, error) {
	const q = `SELECT u.id, u.username, u.status, u.role_id, r.code AS role_code, r.is_admin
                 FROM users u
                 LEFT JOIN roles r ON r.id = u.role_id
                WHERE u.id = ?
                LIMIT 1`

	var row principalRow
	if err := s.q.GetValue(ctx, &row, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUnknownUser
		}
		return nil, err
	}
	if row.Status == 0 {
		return nil, auth.ErrUserDisabled
	}
	return &auth.Principal{
		UserID:   row.ID,
		Username: row.Username,
		RoleID:   row.RoleID.Int64,
		RoleCode: row.RoleCode.String,
		IsAdmin:  row.IsAdmin.Int64 == 1,
	}, nil
}

// RoleCodes returns the permission codes bound to roleID, uncached.
func (s *Store) RoleCodes(ctx context.Context, roleID int64) ([]string, error) {
	const q = `SELECT p.code
                 FROM role_permissions rp
                 JOIN permissions p ON p.id = rp.permission_id
                WHERE rp.role_id = ?`

	codes := make([]string, 0, 16)
	if err := s.q.Select(ctx, &codes, q, roleID); err != nil {
		return nil, err
	}
	return codes, nil
}

// Allowed reports whether roleID carries code.
func (s *Store) Allowed(ctx context.Context, roleID int64, code string) (bool, error) {
	if set, ok := s.codes.Get(roleID); ok {
		_, hit := set[code]
		return hit, nil
	}

	v, err, _ := s.sfg.Do(strconv.FormatInt(roleID, 10), func() (any, error) {
		// Double-check after singleflight barrier.
		if set, ok := s.codes.Get(roleID); ok {
			return set, nil
		}
		metrics.ACLCacheMisses.Inc()
		codes, err := s.RoleCodes(ctx, roleID)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(codes))
		for _, c := range codes {
			set[c] = struct{}{}
		}
		s.codes.Add(roleID, set)
		zap.L().Debug("acl codes loaded", zap.Int64("role_id", roleID), zap.Int("count", len(set)))
		return set, nil
	})
	if err != nil {
		return false, err
	}
	_, hit := v.(map[string]struct{})[code]
	return hit, nil
}

// Invalidate drops the cached code set of roleID.
func (s *Store) Invalidate(roleID int64) { s.codes.Remove(roleID) }

// InvalidateAll drops every cached code set.
func (s *Store) InvalidateAll() { s.codes.Purge() }
