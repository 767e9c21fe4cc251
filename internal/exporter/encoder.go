// Package exporter writes procedure result sets as CSV, JSON Lines, Excel or
// PDF documents.
package exporter

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Format names an output format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// ParseFormat returns the format with the given name. An empty name is CSV.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatExcel, FormatPDF:
		return f, nil
	case "xlsx":
		return FormatExcel, nil
	case "jsonl":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q", name)
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "jsonl"
	case FormatExcel:
		return "xlsx"
	case FormatPDF:
		return "pdf"
	}
	return "csv"
}

// RowEncoder writes one result set. WriteHeader is called once, before any
// WriteRow; Close finishes the document and must be called exactly once.
// Close does not close the underlying writer.
type RowEncoder interface {
	WriteHeader(columns []string) error
	WriteRow(values []any) error
	io.Closer
}

// New returns the encoder for f writing to w.
func New(f Format, w io.Writer) (RowEncoder, error) {
	switch f {
	case FormatCSV:
		return NewCSVEncoder(w), nil
	case FormatJSON:
		return NewJSONEncoder(w), nil
	case FormatExcel:
		enc, err := NewExcelEncoder(w)
		if err != nil {
			return nil, err
		}
		return enc, nil
	case FormatPDF:
		return NewPDFEncoder(w), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

// Stats describes a finished encode.
type Stats struct {
	Rows     int64
	Duration time.Duration
}

// Encode writes columns and rows through enc and closes it. Rows must have
// the same width as columns.
func Encode(ctx context.Context, enc RowEncoder, columns []string, rows [][]any) (Stats, error) {
	start := time.Now()
	var stats Stats

	if err := enc.WriteHeader(columns); err != nil {
		_ = enc.Close()
		return stats, fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			_ = enc.Close()
			return stats, err
		}
		if len(row) != len(columns) {
			_ = enc.Close()
			return stats, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(columns))
		}
		if err := enc.WriteRow(row); err != nil {
			_ = enc.Close()
			return stats, fmt.Errorf("write row %d: %w", i, err)
		}
		stats.Rows++
	}
	if err := enc.Close(); err != nil {
		return stats, fmt.Errorf("finish document: %w", err)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

const nullText = "NULL"

// cellText renders a driver value as text. Drivers hand back text columns
// as []byte, so those are treated as strings.
func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return nullText
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.DateTime)
	case bool:
		if val {
			return "1"
		}
		return "0"
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

// isNative reports whether v is a number, boolean or time that encoders can
// write without the formula guard.
func isNative(v any) bool {
	switch v.(type) {
	case nil, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool, time.Time:
		return true
	}
	return false
}

// textCell renders v as text, guarding anything but native values and plain
// numbers drivers return as text.
func textCell(v any) string {
	s := cellText(v)
	if isNative(v) {
		return s
	}
	return guardFormula(s)
}

// guardFormula prefixes values a spreadsheet would evaluate as a formula.
// Plain numbers such as "-5" are left alone.
func guardFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return s
		}
		return "'" + s
	}
	return s
}
