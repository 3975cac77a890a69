// internal/orm/schema.go
//
// Static table descriptions for the micro-ORM.
//
// Context
// -------
// Every entity is described once, at package init, by a `*Schema`: table
// name plus an ordered field list.  The order is significant.  It fixes the
// column order of SELECT lists, INSERT column lists, WHERE clauses, and
// UPDATE SET clauses, so generated SQL is byte-stable and testable with
// sqlmock's exact matchers.
//
// Invariants enforced by NewSchema
// --------------------------------
//   • exactly one primary key;
//   • field names are unique and non-empty;
//   • a time field is not both AutoNow and AutoNowAdd;
//   • AutoNow / AutoNowAdd only on time fields;
//   • defaults coerce to the field kind;
//   • a foreign key names its target schema.
//
// Notes
// -----
//   • Identifiers are backtick-quoted (MySQL).
//   • Oxford commas, two spaces after periods.
package orm

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the storage type of a field.
type Kind int

const (
	Int Kind = iota
	String
	Bool
	Float
	Time
	ForeignKey
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case String:
		return "string"
	case Bool:
		return "bool"
	case Float:
		return "float"
	case Time:
		return "time"
	case ForeignKey:
		return "foreign key"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field describes one column.  Default is used for new records; AutoNowAdd
// implies a "now" default and AutoNow refreshes the value on every write.
type Field struct {
	Name       string
	Kind       Kind
	PrimaryKey bool
	Nullable   bool
	Unique     bool
	MaxLen     int
	Default    any
	AutoNow    bool
	AutoNowAdd bool
	Comment    string
	Ref        *Schema
}

// Schema is an immutable table description.
type Schema struct {
	Table  string
	Fields []Field

	pk    int
	index map[string]int
}

var (
	ErrNoPrimaryKey   = errors.New("orm: schema has no primary key")
	ErrManyPrimaryKey = errors.New("orm: schema has more than one primary key")
	ErrAutoTime       = errors.New("orm: auto_now and auto_now_add are mutually exclusive")
)

// NewSchema validates fields and builds the name index.
func NewSchema(table string, fields ...Field) (*Schema, error) {
	s := &Schema{Table: table, Fields: fields, pk: -1, index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("orm: %s field %d has no name", table, i)
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("orm: %s field %q declared twice", table, f.Name)
		}
		s.index[f.Name] = i

		if f.PrimaryKey {
			if s.pk >= 0 {
				return nil, fmt.Errorf("%w: %s", ErrManyPrimaryKey, table)
			}
			s.pk = i
		}
		if f.AutoNow && f.AutoNowAdd {
			return nil, fmt.Errorf("%w: %s.%s", ErrAutoTime, table, f.Name)
		}
		if (f.AutoNow || f.AutoNowAdd) && f.Kind != Time {
			return nil, fmt.Errorf("orm: %s.%s: auto timestamps need a time field", table, f.Name)
		}
		if f.Default != nil {
			if _, err := coerce(f, f.Default); err != nil {
				return nil, fmt.Errorf("orm: %s.%s: bad default: %w", table, f.Name, err)
			}
		}
		if f.Kind == ForeignKey && f.Ref == nil {
			return nil, fmt.Errorf("orm: %s.%s: foreign key without target", table, f.Name)
		}
	}
	if s.pk < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, table)
	}
	return s, nil
}

// MustSchema is NewSchema that panics.  Intended for package-level vars.
func MustSchema(table string, fields ...Field) *Schema {
	s, err := NewSchema(table, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// PK returns the primary-key field.
func (s *Schema) PK() Field { return s.Fields[s.pk] }

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Columns returns every column name in declaration order.
func (s *Schema) Columns() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

func quote(name string) string { return "`" + name + "`" }

func (s *Schema) selectList() string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = quote(f.Name)
	}
	return strings.Join(cols, ", ")
}
