// Package record reads typed values out of a result row by column name.
//
// A Row holds the values of the current row of a result set. It is reused for
// every row of the set and closed once the set is exhausted, so row readers
// must copy what they need and never keep the *Row itself.
package record

import (
	"strings"

	"fluxproc/internal/errs"
)

// Reader is the read-only view the accessor functions work against.
type Reader interface {
	// Value returns the value of column in the current row; nil means SQL NULL.
	Value(column string) (any, error)

	// IsClosed reports whether the underlying result set has been released.
	IsClosed() bool
}

// Scanner is implemented by *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Row is the current row of a result set.
type Row struct {
	columns []string
	exact   map[string]int
	folded  map[string]int
	values  []any
	dest    []any
	loaded  bool
	closed  bool
}

var _ Reader = (*Row)(nil)

// NewRow prepares a row buffer for a result set with the given columns.
func NewRow(columns []string) *Row {
	r := &Row{
		columns: append([]string(nil), columns...),
		exact:   make(map[string]int, len(columns)),
		folded:  make(map[string]int, len(columns)),
		values:  make([]any, len(columns)),
		dest:    make([]any, len(columns)),
	}
	for i, c := range columns {
		if _, dup := r.exact[c]; !dup {
			r.exact[c] = i
		}
		if _, dup := r.folded[strings.ToLower(c)]; !dup {
			r.folded[strings.ToLower(c)] = i
		}
		r.dest[i] = &r.values[i]
	}
	return r
}

// Scan loads the current row from src.
func (r *Row) Scan(src Scanner) error {
	if r.closed {
		return errs.State("row is closed")
	}
	for i := range r.values {
		r.values[i] = nil
	}
	if err := src.Scan(r.dest...); err != nil {
		r.loaded = false
		return err
	}
	r.loaded = true
	return nil
}

// Columns returns the column names in result order.
func (r *Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Values returns a copy of the current row's values in column order.
func (r *Row) Values() []any {
	return append([]any(nil), r.values...)
}

// Value returns the value of the named column. Lookup is exact first, then
// case-insensitive.
func (r *Row) Value(column string) (any, error) {
	if r.closed {
		return nil, errs.Argument("reader", "reader is closed")
	}
	if !r.loaded {
		return nil, errs.State("no current row")
	}
	i, ok := r.exact[column]
	if !ok {
		i, ok = r.folded[strings.ToLower(column)]
	}
	if !ok {
		return nil, errs.Argument("column", "unknown column "+column)
	}
	return r.values[i], nil
}

// IsClosed reports whether Close has been called.
func (r *Row) IsClosed() bool {
	return r.closed
}

// Close releases the row; every later read fails.
func (r *Row) Close() {
	r.closed = true
	r.loaded = false
	for i := range r.values {
		r.values[i] = nil
	}
}
