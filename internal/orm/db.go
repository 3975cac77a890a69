// internal/orm/db.go
//
// DB binds the mapper to a connection pool.
//
// Context
// -------
// Each ORM call checks one connection out for its whole duration (a
// paginate runs COUNT and SELECT on the same connection) and returns it
// afterwards.  A driver.ErrBadConn result, a cancelled or expired context,
// or a panic discards the connection instead of pooling it.  The request
// context flows down to the driver, so a client that disconnects cancels
// its in-flight query.
//
// Notes
// -----
//   • Raw helpers (Exec, Select, GetValue) exist for the few joins and
//     aggregates the entity layer needs; they share the checkout logic.
//   • Oxford commas, two spaces after periods.

package orm

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/pool"
)

// Pool is the checkout contract of *pool.Pool.
type Pool interface {
	Acquire(ctx context.Context) (pool.Conn, error)
	Release(c pool.Conn)
	Discard(c pool.Conn)
}

// DB runs mapper queries against a Pool.
type DB struct {
	pool Pool
	now  func() time.Time
}

// NewDB wraps p.  now may be nil (time.Now).
func NewDB(p Pool, now func() time.Time) *DB {
	if now == nil {
		now = time.Now
	}
	return &DB{pool: p, now: now}
}

func (db *DB) withConn(ctx context.Context, fn func(pool.Conn) error) (err error) {
	c, err := db.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	keep := false
	defer func() {
		if keep {
			db.pool.Release(c)
			return
		}
		db.pool.Discard(c)
	}()
	err = fn(c)
	keep = !unusable(err)
	return err
}

// unusable reports whether err leaves the connection in an unknown state.
// The MySQL driver closes the socket when a running query is cancelled.
func unusable(err error) bool {
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Exec runs a raw statement.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := db.withConn(ctx, func(c pool.Conn) error {
		var err error
		res, err = c.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

// Select scans every row of a raw query into dest (a pointer to a slice),
// using sqlx struct-tag mapping.
func (db *DB) Select(ctx context.Context, dest any, query string, args ...any) error {
	return db.withConn(ctx, func(c pool.Conn) error {
		return sqlx.SelectContext(ctx, c, dest, query, args...)
	})
}

// GetValue scans the single row of a raw query into dest.
func (db *DB) GetValue(ctx context.Context, dest any, query string, args ...any) error {
	return db.withConn(ctx, func(c pool.Conn) error {
		return sqlx.GetContext(ctx, c, dest, query, args...)
	})
}

// New returns an unsaved Record with defaults applied.
func (db *DB) New(s *Schema) *Record {
	r := &Record{schema: s, db: db, vals: make([]any, len(s.Fields)), dirty: make([]bool, len(s.Fields))}
	now := db.now()
	for i, f := range s.Fields {
		switch {
		case f.AutoNow || f.AutoNowAdd:
			r.vals[i] = now
		case f.Default != nil:
			r.vals[i], _ = coerce(f, f.Default) // checked by NewSchema
		}
	}
	return r
}

// load turns one MapScan result into a clean Record.
func (db *DB) load(s *Schema, row map[string]any) (*Record, error) {
	r := &Record{schema: s, db: db, vals: make([]any, len(s.Fields)), dirty: make([]bool, len(s.Fields))}
	for i, f := range s.Fields {
		v, err := coerce(f, row[f.Name])
		if err != nil {
			return nil, err
		}
		r.vals[i] = v
	}
	return r, nil
}

func (db *DB) query(ctx context.Context, c pool.Conn, s *Schema, q string, args []any) ([]*Record, error) {
	rows, err := c.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		m := make(map[string]any, len(s.Fields))
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}
		r, err := db.load(s, m)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) get(ctx context.Context, s *Schema, eq Eq) (*Record, error) {
	if len(eq) == 0 {
		return nil, ErrNoConditions
	}
	where, args, err := s.where(eq)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + s.selectList() + " FROM " + quote(s.Table) + where + " LIMIT 1"

	var found []*Record
	err = db.withConn(ctx, func(c pool.Conn) error {
		var err error
		found, err = db.query(ctx, c, s, q, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

func (db *DB) filter(ctx context.Context, s *Schema, eq Eq) ([]*Record, error) {
	where, args, err := s.where(eq)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + s.selectList() + " FROM " + quote(s.Table) + where + " ORDER BY " + quote(s.PK().Name)

	var found []*Record
	err = db.withConn(ctx, func(c pool.Conn) error {
		var err error
		found, err = db.query(ctx, c, s, q, args)
		return err
	})
	return found, err
}

func (db *DB) count(ctx context.Context, s *Schema, eq Eq) (int64, error) {
	where, args, err := s.where(eq)
	if err != nil {
		return 0, err
	}
	var n int64
	err = db.withConn(ctx, func(c pool.Conn) error {
		return c.QueryRowxContext(ctx, "SELECT COUNT(*) FROM "+quote(s.Table)+where, args...).Scan(&n)
	})
	return n, err
}

func (db *DB) paginate(ctx context.Context, s *Schema, page, size int, eq Eq) ([]*Record, int64, int, int, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	where, args, err := s.where(eq)
	if err != nil {
		return nil, 0, page, size, err
	}

	var (
		total int64
		found []*Record
	)
	err = db.withConn(ctx, func(c pool.Conn) error {
		if err := c.QueryRowxContext(ctx, "SELECT COUNT(*) FROM "+quote(s.Table)+where, args...).Scan(&total); err != nil {
			return err
		}
		q := "SELECT " + s.selectList() + " FROM " + quote(s.Table) + where +
			" ORDER BY " + quote(s.PK().Name) + " LIMIT ? OFFSET ?"
		var err error
		found, err = db.query(ctx, c, s, q, append(args, size, (page-1)*size))
		return err
	})
	if err != nil {
		zap.L().Error("orm paginate", zap.String("table", s.Table), zap.Error(err))
	}
	return found, total, page, size, err
}
