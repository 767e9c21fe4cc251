package exporter

import (
	"bufio"
	"encoding/csv"
	"io"
)

// CSVEncoder writes RFC 4180 CSV through a 64KB buffer. Text cells that a
// spreadsheet would evaluate as formulas are prefixed with a quote.
type CSVEncoder struct {
	buf    *bufio.Writer
	w      *csv.Writer
	record []string
}

// NewCSVEncoder returns an encoder writing CSV to w.
func NewCSVEncoder(w io.Writer) *CSVEncoder {
	buf := bufio.NewWriterSize(w, 64*1024)
	return &CSVEncoder{buf: buf, w: csv.NewWriter(buf)}
}

// WriteHeader writes the header record.
func (e *CSVEncoder) WriteHeader(columns []string) error {
	e.record = make([]string, len(columns))
	return e.w.Write(columns)
}

// WriteRow writes one record, guarding text cells against formula injection.
func (e *CSVEncoder) WriteRow(values []any) error {
	if cap(e.record) < len(values) {
		e.record = make([]string, len(values))
	}
	record := e.record[:len(values)]
	for i, v := range values {
		record[i] = textCell(v)
	}
	return e.w.Write(record)
}

// Close flushes buffered output.
func (e *CSVEncoder) Close() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return err
	}
	return e.buf.Flush()
}
