package exporter

import (
	"errors"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	excelSheet   = "Sheet1"
	excelMaxRows = 1048576
)

var ErrExcelRowLimit = errors.New("excel row limit exceeded (1,048,576 rows)")

// ExcelEncoder streams rows into a single-sheet workbook and writes the
// .xlsx archive to w on Close.
type ExcelEncoder struct {
	f   *excelize.File
	sw  *excelize.StreamWriter
	w   io.Writer
	row int
}

// NewExcelEncoder returns an encoder streaming a single-sheet workbook to w.
func NewExcelEncoder(w io.Writer) (*ExcelEncoder, error) {
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter(excelSheet)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &ExcelEncoder{f: f, sw: sw, w: w, row: 1}, nil
}

// WriteHeader writes the header row.
func (e *ExcelEncoder) WriteHeader(columns []string) error {
	cells := make([]any, len(columns))
	for i, c := range columns {
		cells[i] = c
	}
	return e.setRow(cells)
}

// WriteRow keeps numbers, booleans and times native so Excel can compute with
// them; text goes through the formula guard.
func (e *ExcelEncoder) WriteRow(values []any) error {
	cells := make([]any, len(values))
	for i, v := range values {
		if v != nil && isNative(v) {
			cells[i] = v
		} else {
			cells[i] = textCell(v)
		}
	}
	return e.setRow(cells)
}

func (e *ExcelEncoder) setRow(cells []any) error {
	if e.row > excelMaxRows {
		return ErrExcelRowLimit
	}
	cell, err := excelize.CoordinatesToCellName(1, e.row)
	if err != nil {
		return err
	}
	if err := e.sw.SetRow(cell, cells); err != nil {
		return err
	}
	e.row++
	return nil
}

// Close flushes the sheet and writes the workbook to w.
func (e *ExcelEncoder) Close() error {
	defer e.f.Close()
	if err := e.sw.Flush(); err != nil {
		return err
	}
	return e.f.Write(e.w)
}
