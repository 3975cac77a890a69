package orm

import "context"

// DefaultPageSize applies when Paginate receives a size below 1.
const DefaultPageSize = 10

// Model runs typed queries for one Schema.  wrap lifts each loaded Record
// into the entity type T.
type Model[T any] struct {
	schema *Schema
	db     *DB
	wrap   func(*Record) T
}

// NewModel binds schema to db.
func NewModel[T any](db *DB, schema *Schema, wrap func(*Record) T) *Model[T] {
	return &Model[T]{schema: schema, db: db, wrap: wrap}
}

// Schema returns the bound table description.
func (m *Model[T]) Schema() *Schema { return m.schema }

// New returns an unsaved entity with defaults applied.
func (m *Model[T]) New() T { return m.wrap(m.db.New(m.schema)) }

// Get returns the first row matching eq, or ErrNotFound.  eq must not be
// empty.
func (m *Model[T]) Get(ctx context.Context, eq Eq) (T, error) {
	r, err := m.db.get(ctx, m.schema, eq)
	if err != nil {
		var zero T
		return zero, err
	}
	return m.wrap(r), nil
}

// Filter returns every matching row ordered by primary key.  A nil or empty
// eq matches all rows.
func (m *Model[T]) Filter(ctx context.Context, eq Eq) ([]T, error) {
	rs, err := m.db.filter(ctx, m.schema, eq)
	if err != nil {
		return nil, err
	}
	return m.lift(rs), nil
}

// Count returns the number of matching rows.
func (m *Model[T]) Count(ctx context.Context, eq Eq) (int64, error) {
	return m.db.count(ctx, m.schema, eq)
}

// Paginate returns one page of matching rows ordered by primary key.
func (m *Model[T]) Paginate(ctx context.Context, page, size int, eq Eq) (Page[T], error) {
	rs, total, page, size, err := m.db.paginate(ctx, m.schema, page, size, eq)
	if err != nil {
		return Page[T]{}, err
	}
	return NewPage(m.lift(rs), page, size, total), nil
}

func (m *Model[T]) lift(rs []*Record) []T {
	out := make([]T, len(rs))
	for i, r := range rs {
		out[i] = m.wrap(r)
	}
	return out
}
