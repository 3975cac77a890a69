// Package orm is a small table-per-schema mapper over internal/pool.
//
// A Schema describes a table, a Record holds one row plus the set of fields
// changed since it was loaded, and Model[T] runs typed queries that wrap
// each Record in an entity type.  SQL is generated with explicit column
// lists in schema order; every value travels as a placeholder argument.
package orm

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yanizio/adminkit/internal/apperr"
)

var (
	// ErrNotFound means Get matched no row.
	ErrNotFound = errors.New("orm: record not found")

	// ErrRowVanished means an UPDATE or DELETE by primary key touched zero
	// rows: the row was removed (or never existed) behind our back.
	ErrRowVanished = errors.New("orm: row vanished")

	ErrNoConditions = errors.New("orm: get requires at least one condition")
	ErrUnsaved      = errors.New("orm: record has no primary key")
	ErrUnknownField = errors.New("orm: unknown field")
	ErrFieldTooLong = errors.New("orm: value exceeds max length")
	ErrBadValue     = errors.New("orm: value does not fit field kind")
	ErrNullField    = errors.New("orm: field is not nullable")
	ErrKeyChange    = errors.New("orm: primary key of a saved record is fixed")
)

func invalid(sentinel error, format string, args ...any) error {
	return &apperr.Error{Kind: apperr.Validation, Msg: fmt.Sprintf(format, args...), Err: sentinel}
}

// Eq maps column names to match values.  Plain values compare with =, nil
// renders IS NULL, and AnyOf / AtLeast select the other operators.
type Eq map[string]any

type anyOf []any

// AnyOf matches any listed value.  A nil member adds an IS NULL branch.
func AnyOf(vals ...any) any { return anyOf(vals) }

type atLeast struct{ v any }

// AtLeast matches values >= v.
func AtLeast(v any) any { return atLeast{v} }

// where renders eq in schema column order.  Unknown columns are a
// validation error.
func (s *Schema) where(eq Eq) (string, []any, error) {
	if len(eq) == 0 {
		return "", nil, nil
	}
	var unknown []string
	for name := range eq {
		if _, ok := s.index[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return "", nil, invalid(ErrUnknownField, "unknown field %s on %s", strings.Join(unknown, ", "), s.Table)
	}

	var (
		parts []string
		args  []any
	)
	for _, f := range s.Fields {
		raw, ok := eq[f.Name]
		if !ok {
			continue
		}
		col := quote(f.Name)
		switch x := raw.(type) {
		case nil:
			parts = append(parts, col+" IS NULL")
		case anyOf:
			var (
				nullable bool
				marks    []string
			)
			for _, m := range x {
				if m == nil {
					nullable = true
					continue
				}
				v, err := coerce(f, m)
				if err != nil {
					return "", nil, err
				}
				marks = append(marks, "?")
				args = append(args, v)
			}
			switch {
			case len(marks) == 0 && nullable:
				parts = append(parts, col+" IS NULL")
			case len(marks) == 0:
				parts = append(parts, "1 = 0")
			case nullable:
				parts = append(parts, "("+col+" IS NULL OR "+col+" IN ("+strings.Join(marks, ", ")+"))")
			default:
				parts = append(parts, col+" IN ("+strings.Join(marks, ", ")+")")
			}
		case atLeast:
			v, err := coerce(f, x.v)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, col+" >= ?")
			args = append(args, v)
		default:
			v, err := coerce(f, raw)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, col+" = ?")
			args = append(args, v)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}
