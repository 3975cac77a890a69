// internal/acl/store_test.go
//
// Unit-tests for acl.Store using sqlmock through a real pool.
//
// Run: go test ./internal/acl -v

package acl

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adminkit/internal/auth"
	"github.com/yanizio/adminkit/internal/orm"
	"github.com/yanizio/adminkit/internal/pool"
)

const (
	resolveSQL = `SELECT u.id, u.username, u.status, u.role_id, r.code AS role_code, r.is_admin FROM users u LEFT JOIN roles r ON r.id = u.role_id WHERE u.id = ? LIMIT 1`
	codesSQL   = `SELECT p.code FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id WHERE rp.role_id = ?`
)

func newStore(t *testing.T, now func() time.Time) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(spaceInsensitive{}))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	p, err := pool.New(context.Background(), pool.FromDB(sqlx.NewDb(raw, "sqlmock")),
		pool.Options{Max: 2, IdleTimeout: time.Minute})
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(func() {
		_ = p.Shutdown()
		_ = raw.Close()
	})
	return NewStore(orm.NewDB(p, nil), time.Minute, now), mock
}

// spaceInsensitive matches the QuoteMeta'd expectation against the query
// with runs of whitespace collapsed, so the indented SQL in store.go reads
// naturally.
type spaceInsensitive struct{}

var spaces = regexp.MustCompile(`\s+`)

func (spaceInsensitive) Match(expected, actual string) error {
	re, err := regexp.Compile(expected)
	if err != nil {
		return err
	}
	if !re.MatchString(spaces.ReplaceAllString(actual, " ")) {
		return errors.New("query mismatch: " + actual)
	}
	return nil
}

func TestResolve(t *testing.T) {
	s, mock := newStore(t, nil)
	cols := []string{"id", "username", "status", "role_id", "role_code", "is_admin"}

	mock.ExpectQuery(regexp.QuoteMeta(resolveSQL)).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "admin", 1, 1, "super_admin", 1))
	mock.ExpectQuery(regexp.QuoteMeta(resolveSQL)).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(2, "bob", 0, 2, "editor", 0))
	mock.ExpectQuery(regexp.QuoteMeta(resolveSQL)).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(cols))

	p, err := s.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !p.IsAdmin || p.RoleCode != "super_admin" || p.Username != "admin" {
		t.Fatalf("principal = %+v", p)
	}
	if _, err := s.Resolve(context.Background(), 2); !errors.Is(err, auth.ErrUserDisabled) {
		t.Fatalf("disabled err = %v", err)
	}
	if _, err := s.Resolve(context.Background(), 3); !errors.Is(err, auth.ErrUnknownUser) {
		t.Fatalf("missing err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAllowedCachesPerRole(t *testing.T) {
	now := time.Unix(0, 0)
	s, mock := newStore(t, func() time.Time { return now })

	mock.ExpectQuery(regexp.QuoteMeta(codesSQL)).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("user:list").AddRow("user:add"))

	ctx := context.Background()
	for _, c := range []struct {
		code string
		want bool
	}{{"user:list", true}, {"user:add", true}, {"user:delete", false}} {
		got, err := s.Allowed(ctx, 2, c.code)
		if err != nil || got != c.want {
			t.Fatalf("Allowed(%s) = %v, %v", c.code, got, err)
		}
	}

	// Invalidate forces a reload.
	s.Invalidate(2)
	mock.ExpectQuery(regexp.QuoteMeta(codesSQL)).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("user:delete"))
	if ok, _ := s.Allowed(ctx, 2, "user:delete"); !ok {
		t.Fatal("reload after Invalidate missed new binding")
	}

	// Expiry forces a reload as well.
	now = now.Add(2 * time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta(codesSQL)).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"code"}))
	if ok, _ := s.Allowed(ctx, 2, "user:delete"); ok {
		t.Fatal("expired entry served")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAllowedPropagatesErrors(t *testing.T) {
	s, mock := newStore(t, nil)
	boom := errors.New("boom")
	mock.ExpectQuery(regexp.QuoteMeta(codesSQL)).WithArgs(int64(5)).WillReturnError(boom)
	if _, err := s.Allowed(context.Background(), 5, "x:y"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}
