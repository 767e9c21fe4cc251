package exporter

import (
	"io"

	"github.com/go-pdf/fpdf"
)

const pdfRowHeight = 7.0

// PDFEncoder lays the result set out as a landscape A4 grid with equal column
// widths. The whole document is held in memory until Close.
type PDFEncoder struct {
	pdf *fpdf.Fpdf
	w   io.Writer
	// tr maps UTF-8 text onto the cp1252 core fonts.
	tr       func(string) string
	colWidth float64
}

// NewPDFEncoder returns an encoder rendering rows as a landscape grid.
func NewPDFEncoder(w io.Writer) *PDFEncoder {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 9)
	pdf.AddPage()
	return &PDFEncoder{pdf: pdf, w: w, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

// WriteHeader sizes the columns and draws the header row.
func (e *PDFEncoder) WriteHeader(columns []string) error {
	pageWidth, _ := e.pdf.GetPageSize()
	left, _, right, _ := e.pdf.GetMargins()
	e.colWidth = pageWidth - left - right
	if len(columns) > 0 {
		e.colWidth /= float64(len(columns))
	}

	e.pdf.SetFont("Arial", "B", 9)
	for _, c := range columns {
		e.pdf.CellFormat(e.colWidth, pdfRowHeight, e.tr(c), "1", 0, "C", false, 0, "")
	}
	e.pdf.Ln(-1)
	e.pdf.SetFont("Arial", "", 9)
	return e.pdf.Error()
}

// WriteRow draws one row, truncating each cell to a single line.
func (e *PDFEncoder) WriteRow(values []any) error {
	for _, v := range values {
		text := e.pdf.SplitText(e.tr(cellText(v)), e.colWidth-2)
		cell := ""
		if len(text) > 0 {
			cell = text[0]
		}
		e.pdf.CellFormat(e.colWidth, pdfRowHeight, cell, "1", 0, "L", false, 0, "")
	}
	e.pdf.Ln(-1)
	return e.pdf.Error()
}

// Close renders the document to w.
func (e *PDFEncoder) Close() error {
	return e.pdf.Output(e.w)
}
