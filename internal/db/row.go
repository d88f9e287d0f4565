package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row gives by-name access to one scanned result row. Getters record the
// first conversion failure, which Err reports; mappers check it once.
type Row struct {
	index  map[string]int
	values []any
	err    error
}

func scanRow(rows *sql.Rows, cols []string) (*Row, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return NewRow(cols, values), nil
}

// NewRow builds a Row from column names and driver values. When a name
// repeats, the first occurrence wins.
func NewRow(cols []string, values []any) *Row {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		key := strings.ToLower(c)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	return &Row{index: index, values: values}
}

// Err returns the first conversion error.
func (r *Row) Err() error {
	return r.err
}

// Has reports whether the row has the named column.
func (r *Row) Has(name string) bool {
	_, ok := r.index[strings.ToLower(name)]
	return ok
}

func (r *Row) value(name string) any {
	i, ok := r.index[strings.ToLower(name)]
	if !ok {
		r.fail(fmt.Errorf("column %q not in result", name))
		return nil
	}
	return r.values[i]
}

func (r *Row) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Row) Int64(name string) int64 {
	v := r.value(name)
	if v == nil {
		return 0
	}
	n, err := toInt64(v)
	if err != nil {
		r.fail(fmt.Errorf("column %s: %w", name, err))
	}
	return n
}

func (r *Row) Int32(name string) int32 {
	return int32(r.Int64(name))
}

func (r *Row) Int(name string) int {
	return int(r.Int64(name))
}

// NullInt32 returns nil for SQL NULL.
func (r *Row) NullInt32(name string) *int32 {
	if r.value(name) == nil {
		return nil
	}
	n := r.Int32(name)
	return &n
}

// String returns "" for SQL NULL.
func (r *Row) String(name string) string {
	switch v := r.value(name).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.DateTime)
	default:
		return fmt.Sprint(v)
	}
}

func (r *Row) Bool(name string) bool {
	switch v := r.value(name).(type) {
	case nil:
		return false
	case bool:
		return v
	case string, []byte:
		s := strings.TrimSpace(r.String(name))
		b, err := strconv.ParseBool(s)
		if err != nil {
			r.fail(fmt.Errorf("column %s: %w", name, err))
		}
		return b
	default:
		n, err := toInt64(v)
		if err != nil {
			r.fail(fmt.Errorf("column %s: %w", name, err))
		}
		return n != 0
	}
}

// Decimal returns zero for SQL NULL.
func (r *Row) Decimal(name string) decimal.Decimal {
	switch v := r.value(name).(type) {
	case nil:
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case string, []byte:
		d, err := decimal.NewFromString(r.String(name))
		if err != nil {
			r.fail(fmt.Errorf("column %s: %w", name, err))
		}
		return d
	default:
		n, err := toInt64(v)
		if err != nil {
			r.fail(fmt.Errorf("column %s: %w", name, err))
		}
		return decimal.NewFromInt(n)
	}
}

// Time returns the zero time for SQL NULL.
func (r *Row) Time(name string) time.Time {
	switch v := r.value(name).(type) {
	case nil:
		return time.Time{}
	case time.Time:
		return v
	case string, []byte:
		s := r.String(name)
		for _, layout := range []string{time.DateTime, "2006-01-02 15:04:05.999999", time.RFC3339, time.DateOnly} {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return t
			}
		}
		r.fail(fmt.Errorf("column %s: unparseable time %q", name, s))
		return time.Time{}
	default:
		r.fail(fmt.Errorf("column %s: unexpected type %T for time", name, v))
		return time.Time{}
	}
}

// NullTime returns nil for SQL NULL.
func (r *Row) NullTime(name string) *time.Time {
	if r.value(name) == nil {
		return nil
	}
	t := r.Time(name)
	return &t
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	}
	return 0, fmt.Errorf("unexpected type %T for integer", v)
}
