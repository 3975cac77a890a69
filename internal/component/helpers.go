package component

import (
	"context"

	"github.com/yanizio/adminkit/internal/apperr"
	"github.com/yanizio/adminkit/internal/auth"
	"github.com/yanizio/adminkit/internal/orm"
	"github.com/yanizio/adminkit/internal/web"
)

// Assign copies the listed fields that body carries onto r, in the given
// order.  Absent keys leave the record untouched; explicit nulls are passed
// through so the mapper can reject them on NOT NULL columns.
func Assign(r *orm.Record, body map[string]any, fields ...string) error {
	for _, f := range fields {
		v, ok := body[f]
		if !ok {
			continue
		}
		if err := r.Set(f, v); err != nil {
			return err
		}
	}
	return nil
}

// Taken reports whether another row of m already holds value in column,
// ignoring the row with id self (0 for none).
func Taken[T interface{ ID() int64 }](ctx context.Context, m *orm.Model[T], column string, value any, self int64) (bool, error) {
	rows, err := m.Filter(ctx, orm.Eq{column: value})
	if err != nil {
		return false, err
	}
	for _, r := range rows {
		if r.ID() != self {
			return true, nil
		}
	}
	return false, nil
}

// NotFound is the 404 every component uses for a missing row.
func NotFound(what string) error { return apperr.Missing(what + " not found") }

// Caller returns the authenticated principal of req.
func Caller(req *web.Request) (*auth.Principal, error) {
	if req.User == nil {
		return nil, apperr.Unauth("Not logged in, please log in first")
	}
	return req.User, nil
}
