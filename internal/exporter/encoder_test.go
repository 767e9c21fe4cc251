package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var (
	sampleColumns = []string{"id", "name", "placed"}
	sampleRows    = [][]any{
		{int64(1), []byte("Ada"), time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)},
		{int64(2), "=SUM(A1:A2)", nil},
	}
)

func TestCSVEncoder(t *testing.T) {
	var buf bytes.Buffer

	stats, err := Encode(context.Background(), NewCSVEncoder(&buf), sampleColumns, sampleRows)

	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Rows)
	assert.Equal(t, "id,name,placed\n1,Ada,2024-02-03 04:05:06\n2,'=SUM(A1:A2),NULL\n", buf.String())
}

func TestCSVEncoderKeepsNegativeNumbers(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]any{
		{int64(-5), float64(-1.25), []byte("-3"), "-2+3"},
	}

	_, err := Encode(context.Background(), NewCSVEncoder(&buf), []string{"delta", "price", "raw", "expr"}, rows)

	require.NoError(t, err)
	assert.Equal(t, "delta,price,raw,expr\n-5,-1.25,-3,'-2+3\n", buf.String())
}

func TestJSONEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewJSONEncoder(&buf)

	require.NoError(t, enc.WriteHeader([]string{"id"}))
	require.NoError(t, enc.WriteRow([]any{int64(7), []byte("extra")}))
	require.NoError(t, enc.Close())

	var obj map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &obj))
	assert.Equal(t, map[string]any{"id": float64(7), "column_1": "extra"}, obj)
}

func TestJSONEncoderWritesOneLinePerRow(t *testing.T) {
	var buf bytes.Buffer

	_, err := Encode(context.Background(), NewJSONEncoder(&buf), sampleColumns, sampleRows)

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"name":"Ada"`)
	assert.Contains(t, lines[1], `"placed":null`)
}

func TestExcelEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewExcelEncoder(&buf)
	require.NoError(t, err)

	_, err = Encode(context.Background(), enc, sampleColumns, sampleRows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue(excelSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "name", header)

	guarded, err := f.GetCellValue(excelSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "'=SUM(A1:A2)", guarded)
}

func TestPDFEncoderProducesDocument(t *testing.T) {
	var buf bytes.Buffer

	_, err := Encode(context.Background(), NewPDFEncoder(&buf), sampleColumns, sampleRows)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestEncodeRejectsRaggedRows(t *testing.T) {
	var buf bytes.Buffer

	_, err := Encode(context.Background(), NewCSVEncoder(&buf), []string{"a", "b"}, [][]any{{1}})

	assert.ErrorContains(t, err, "row 0 has 1 values, want 2")
}

func TestEncodeStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Encode(ctx, NewCSVEncoder(&bytes.Buffer{}), sampleColumns, sampleRows)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ext  string
	}{
		{"", FormatCSV, "csv"},
		{"JSON", FormatJSON, "jsonl"},
		{"xlsx", FormatExcel, "xlsx"},
		{"pdf", FormatPDF, "pdf"},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.ext, got.Extension())
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestNewSelectsEncoder(t *testing.T) {
	enc, err := New(FormatJSON, &bytes.Buffer{})
	require.NoError(t, err)
	assert.IsType(t, &JSONEncoder{}, enc)

	_, err = New(Format("xml"), &bytes.Buffer{})
	assert.Error(t, err)
}
