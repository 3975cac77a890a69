// internal/orm/record.go
//
// Record: one row plus its changeset.
//
// Context
// -------
// All writes go through Set, which coerces the value to the field kind and
// marks the field dirty only when the value actually changes.  Save inserts
// when the primary key is unset and otherwise updates the dirty fields
// alone; a clean record saves without touching the database.  The dirty set
// is cleared after a load and after every successful Save.
//
// Notes
// -----
//   • Length limits and NOT NULL are checked when a value is written, so an
//     oversized value fails before any SQL is sent and leaves the record
//     as it was.
//   • The primary key of a saved record is fixed; Set refuses to change it.
//   • Oxford commas, two spaces after periods.

package orm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/adminkit/internal/apperr"
)

// Record is one row of a Schema.
type Record struct {
	schema *Schema
	db     *DB
	vals   []any
	dirty  []bool
}

// Schema returns the record's table description.
func (r *Record) Schema() *Schema { return r.schema }

// Get returns the raw normalised value of name, or nil for unknown names.
func (r *Record) Get(name string) any {
	i, ok := r.schema.index[name]
	if !ok {
		return nil
	}
	return r.vals[i]
}

// Set coerces v and stores it, marking name dirty when the value changes.
func (r *Record) Set(name string, v any) error {
	i, ok := r.schema.index[name]
	if !ok {
		return invalid(ErrUnknownField, "unknown field %s on %s", name, r.schema.Table)
	}
	nv, err := coerce(r.schema.Fields[i], v)
	if err != nil {
		return err
	}
	if same(r.vals[i], nv) {
		return nil
	}
	if i == r.schema.pk && !r.IsNew() {
		return invalid(ErrKeyChange, "%s of %s cannot change", name, r.schema.Table)
	}
	r.vals[i] = nv
	r.dirty[i] = true
	return nil
}

// Dirty lists changed fields in schema order.
func (r *Record) Dirty() []string {
	var out []string
	for i, d := range r.dirty {
		if d {
			out = append(out, r.schema.Fields[i].Name)
		}
	}
	return out
}

// IsNew reports whether the record has never been saved.
func (r *Record) IsNew() bool { return r.vals[r.schema.pk] == nil }

// ID returns the primary key, or 0 for an unsaved record.
func (r *Record) ID() int64 { return r.Int(r.schema.PK().Name) }

// IsNull reports whether name holds SQL NULL.
func (r *Record) IsNull(name string) bool { return r.Get(name) == nil }

// Int returns an Int or ForeignKey field; NULL reads as 0.
func (r *Record) Int(name string) int64 {
	v, _ := r.Get(name).(int64)
	return v
}

// Str returns a String field; NULL reads as "".
func (r *Record) Str(name string) string {
	v, _ := r.Get(name).(string)
	return v
}

// Bool returns a Bool field; NULL reads as false.
func (r *Record) Bool(name string) bool {
	v, _ := r.Get(name).(bool)
	return v
}

// Float returns a Float field; NULL reads as 0.
func (r *Record) Float(name string) float64 {
	v, _ := r.Get(name).(float64)
	return v
}

// Time returns a Time field; NULL reads as the zero time.
func (r *Record) Time(name string) time.Time {
	v, _ := r.Get(name).(time.Time)
	return v
}

// Map renders the record for JSON, skipping the omitted fields.  Times use
// TimeLayout.
func (r *Record) Map(omit ...string) map[string]any {
	out := make(map[string]any, len(r.vals))
next:
	for i, f := range r.schema.Fields {
		for _, o := range omit {
			if o == f.Name {
				continue next
			}
		}
		out[f.Name] = jsonValue(r.vals[i])
	}
	return out
}

// MarshalJSON encodes Map().
func (r *Record) MarshalJSON() ([]byte, error) { return json.Marshal(r.Map()) }

// Save inserts or updates.  See the file header for the rules.
func (r *Record) Save(ctx context.Context) error {
	if r.IsNew() {
		return r.insert(ctx)
	}
	return r.update(ctx)
}

func (r *Record) checkWrite(i int) error {
	f := r.schema.Fields[i]
	v := r.vals[i]
	if v == nil {
		if !f.Nullable && !f.PrimaryKey {
			return invalid(ErrNullField, "%s is required", f.Name)
		}
		return nil
	}
	if s, ok := v.(string); ok && f.MaxLen > 0 && len([]rune(s)) > f.MaxLen {
		return invalid(ErrFieldTooLong, "%s exceeds max length %d", f.Name, f.MaxLen)
	}
	return nil
}

func (r *Record) insert(ctx context.Context) error {
	s := r.schema
	now := r.db.now()
	var (
		cols  []string
		marks []string
		args  []any
	)
	for i, f := range s.Fields {
		if f.PrimaryKey {
			continue
		}
		if f.AutoNow {
			r.vals[i] = now
		}
		if err := r.checkWrite(i); err != nil {
			return err
		}
		cols = append(cols, quote(f.Name))
		marks = append(marks, "?")
		args = append(args, r.vals[i])
	}
	q := "INSERT INTO " + quote(s.Table) + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"

	res, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.vals[s.pk] = id
	r.clean()
	zap.L().Debug("orm insert", zap.String("table", s.Table), zap.Int64("id", id))
	return nil
}

func (r *Record) update(ctx context.Context) error {
	s := r.schema
	if len(r.Dirty()) == 0 {
		return nil
	}
	now := r.db.now()

	var (
		sets []string
		args []any
	)
	for i, f := range s.Fields {
		switch {
		case f.AutoNow:
			args = append(args, now)
		case r.dirty[i]:
			if err := r.checkWrite(i); err != nil {
				return err
			}
			args = append(args, r.vals[i])
		default:
			continue
		}
		sets = append(sets, quote(f.Name)+" = ?")
	}
	args = append(args, r.vals[s.pk])
	q := "UPDATE " + quote(s.Table) + " SET " + strings.Join(sets, ", ") + " WHERE " + quote(s.PK().Name) + " = ?"

	res, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return apperr.Wrap(apperr.Integrity, ErrRowVanished)
	}
	for i, f := range s.Fields {
		if f.AutoNow {
			r.vals[i] = now
		}
	}
	r.clean()
	return nil
}

// Delete removes the row by primary key.
func (r *Record) Delete(ctx context.Context) error {
	if r.IsNew() {
		return ErrUnsaved
	}
	s := r.schema
	res, err := r.db.Exec(ctx, "DELETE FROM "+quote(s.Table)+" WHERE "+quote(s.PK().Name)+" = ?", r.vals[s.pk])
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Wrap(apperr.Integrity, ErrRowVanished)
	}
	return nil
}

// Related fetches the row a ForeignKey field points at.  A NULL key returns
// (nil, nil).
func (r *Record) Related(ctx context.Context, field string) (*Record, error) {
	f, ok := r.schema.Field(field)
	if !ok || f.Kind != ForeignKey {
		return nil, invalid(ErrUnknownField, "%s is not a foreign key on %s", field, r.schema.Table)
	}
	v := r.Get(field)
	if v == nil {
		return nil, nil
	}
	return r.db.get(ctx, f.Ref, Eq{f.Ref.PK().Name: v})
}

func (r *Record) clean() {
	for i := range r.dirty {
		r.dirty[i] = false
	}
}
