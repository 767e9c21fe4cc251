package exporter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// JSONEncoder writes JSON Lines: one object per row keyed by column name.
// Columns beyond the header are keyed column_<index>.
type JSONEncoder struct {
	buf     *bufio.Writer
	enc     *json.Encoder
	columns []string
}

// NewJSONEncoder returns an encoder writing one JSON object per row.
func NewJSONEncoder(w io.Writer) *JSONEncoder {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &JSONEncoder{buf: buf, enc: enc}
}

// WriteHeader records the column names used as object keys.
func (e *JSONEncoder) WriteHeader(columns []string) error {
	e.columns = append([]string(nil), columns...)
	return nil
}

// WriteRow writes values as a single JSON line.
func (e *JSONEncoder) WriteRow(values []any) error {
	obj := make(map[string]any, len(values))
	for i, v := range values {
		key := fmt.Sprintf("column_%d", i)
		if i < len(e.columns) {
			key = e.columns[i]
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		obj[key] = v
	}
	return e.enc.Encode(obj)
}

// Close flushes buffered output.
func (e *JSONEncoder) Close() error {
	return e.buf.Flush()
}
