// internal/orm/value.go
//
// Value coercion between Go, request bodies, and the MySQL driver.
//
// Every value stored in a Record is normalised to one Go type per Kind:
//
//	Int, ForeignKey → int64
//	String          → string
//	Bool            → bool
//	Float           → float64
//	Time            → time.Time
//
// nil always means SQL NULL.  Inputs arrive in many shapes (JSON numbers as
// float64 or json.Number, path params as strings, driver values as []byte
// under the text protocol), and coerce folds them all onto the table above.

package orm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the wire format for time fields in JSON and string input.
const TimeLayout = "2006-01-02 15:04:05"

func coerce(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var (
		out any
		err error
	)
	switch f.Kind {
	case Int, ForeignKey:
		out, err = toInt(v)
	case String:
		out, err = toString(v)
	case Bool:
		out, err = toBool(v)
	case Float:
		out, err = toFloat(v)
	case Time:
		out, err = toTime(v)
	default:
		err = fmt.Errorf("unsupported kind %v", f.Kind)
	}
	if err != nil {
		return nil, invalid(ErrBadValue, "%s: invalid %s value", f.Name, f.Kind)
	}
	return out, nil
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("overflow")
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("not integral")
		}
		return int64(x), nil
	case float32:
		return toInt(float64(x))
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	}
	return 0, fmt.Errorf("type %T", v)
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case json.Number:
		return x.String(), nil
	case int64, int, int32, float64, bool:
		return fmt.Sprint(x), nil
	case time.Time:
		return x.Format(TimeLayout), nil
	}
	return "", fmt.Errorf("type %T", v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	case []byte:
		return strconv.ParseBool(string(x))
	}
	n, err := toInt(v)
	return n != 0, err
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	}
	n, err := toInt(v)
	return float64(n), err
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return *x, nil
	case string:
		return parseTime(x)
	case []byte:
		return parseTime(string(x))
	}
	return time.Time{}, fmt.Errorf("type %T", v)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(TimeLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// same reports whether two normalised values are equal.
func same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}

// jsonValue renders a normalised value for Map / MarshalJSON.
func jsonValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(TimeLayout)
	}
	return v
}
