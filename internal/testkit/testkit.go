// internal/testkit/testkit.go
//
// Shared fixtures for component tests.
//
// Context
// -------
// Components talk to MySQL through entity.Store, internal/orm, and
// internal/pool.  Tests run the real stack over sqlmock with exact SQL
// matching, so these helpers render statements the same way the mapper
// does: explicit column lists in schema order, backtick-quoted
// identifiers, and `?` placeholders.
//
// Notes
// -----
//   • Only imported from _test.go files.
//   • Oxford commas, two spaces after periods.
package testkit

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/adminkit/internal/auth"
	"github.com/yanizio/adminkit/internal/component"
	"github.com/yanizio/adminkit/internal/entity"
	"github.com/yanizio/adminkit/internal/orm"
	"github.com/yanizio/adminkit/internal/pool"
	"github.com/yanizio/adminkit/internal/web"
)

// Now is the frozen clock every fixture uses.
var Now = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// NewStore wires entity.Store to a fresh sqlmock with exact matching.
func NewStore(t testing.TB) (*entity.Store, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	p, err := pool.New(context.Background(), pool.FromDB(sqlx.NewDb(raw, "sqlmock")),
		pool.Options{Max: 1, IdleTimeout: time.Minute})
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("sql expectations: %v", err)
		}
		_ = p.Shutdown()
		_ = raw.Close()
	})
	return entity.NewStore(orm.NewDB(p, func() time.Time { return Now })), mock
}

// ACL records invalidations.
type ACL struct {
	Roles []int64
	All   int
}

func (a *ACL) Invalidate(roleID int64) { a.Roles = append(a.Roles, roleID) }
func (a *ACL) InvalidateAll()          { a.All++ }

// Tokens issues "token-<id>".
type Tokens struct{}

func (Tokens) Issue(userID int64, _ string) (string, time.Time, error) {
	return "token-" + strconv.FormatInt(userID, 10), Now.Add(24 * time.Hour), nil
}

// Deps bundles a mock store with recording collaborators.
func Deps(t testing.TB) (component.Deps, sqlmock.Sqlmock, *ACL) {
	t.Helper()
	store, mock := NewStore(t)
	acl := &ACL{}
	return component.Deps{Store: store, ACL: acl, Tokens: Tokens{}, Now: func() time.Time { return Now }}, mock, acl
}

/*────────────────────────────── SQL text ──────────────────────────────────*/

func q(name string) string { return "`" + name + "`" }

// Cols is the mapper's select list for s.
func Cols(s *orm.Schema) string {
	cols := s.Columns()
	for i, c := range cols {
		cols[i] = q(c)
	}
	return strings.Join(cols, ", ")
}

// Where renders equality conditions; names must already be in schema order.
func Where(names ...string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = q(n) + " = ?"
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

// Get is the statement Model.Get sends.
func Get(s *orm.Schema, where string) string {
	return "SELECT " + Cols(s) + " FROM " + q(s.Table) + where + " LIMIT 1"
}

// Filter is the statement Model.Filter sends.
func Filter(s *orm.Schema, where string) string {
	return "SELECT " + Cols(s) + " FROM " + q(s.Table) + where + " ORDER BY " + q(s.PK().Name)
}

// Page is the row statement of Model.Paginate; Count is its first half.
func Page(s *orm.Schema, where string) string {
	return Filter(s, where) + " LIMIT ? OFFSET ?"
}

// Count is the statement Model.Count sends.
func Count(s *orm.Schema, where string) string {
	return "SELECT COUNT(*) FROM " + q(s.Table) + where
}

// Insert is the statement Record.Save sends for a new row.
func Insert(s *orm.Schema) string {
	var cols, marks []string
	for _, f := range s.Fields {
		if f.PrimaryKey {
			continue
		}
		cols = append(cols, q(f.Name))
		marks = append(marks, "?")
	}
	return "INSERT INTO " + q(s.Table) + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
}

// Update is the statement Record.Save sends after changing names.  AutoNow
// fields are added, and the set list follows schema order.
func Update(s *orm.Schema, names ...string) string {
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	var sets []string
	for _, f := range s.Fields {
		if want[f.Name] || f.AutoNow {
			sets = append(sets, q(f.Name)+" = ?")
		}
	}
	return "UPDATE " + q(s.Table) + " SET " + strings.Join(sets, ", ") + " WHERE " + q(s.PK().Name) + " = ?"
}

// Delete is the statement Record.Delete sends.
func Delete(s *orm.Schema) string {
	return "DELETE FROM " + q(s.Table) + " WHERE " + q(s.PK().Name) + " = ?"
}

// Rows builds a result set for s.  Missing columns read as NULL.
func Rows(s *orm.Schema, records ...map[string]any) *sqlmock.Rows {
	rows := sqlmock.NewRows(s.Columns())
	for _, rec := range records {
		vals := make([]driver.Value, len(s.Fields))
		for i, f := range s.Fields {
			vals[i] = rec[f.Name]
		}
		rows.AddRow(vals...)
	}
	return rows
}

// CountRow is a single COUNT(*) result.
func CountRow(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(n)
}

/*───────────────────────────── requests ───────────────────────────────────*/

// Request builds a parsed API request.  body is JSON-encoded when non-nil.
func Request(t testing.TB, method, target string, body any) *web.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return web.NewRequest(r, "192.0.2.10", "X-CSRF-Token")
}

// As attaches a principal and path params to req.
func As(req *web.Request, p *auth.Principal, params map[string]string) *web.Request {
	req.User = p
	if p != nil {
		req.WithContext(auth.WithPrincipal(req.Context(), p))
	}
	for k, v := range params {
		req.Params[k] = v
	}
	return req
}

// Admin is a super-admin principal with id 1.
var Admin = &auth.Principal{UserID: 1, Username: "admin", RoleID: 1, RoleCode: "super_admin", IsAdmin: true}
