package render

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
)

func sampleRows() ([]models.Row, []string) {
	rows := []models.Row{
		{"id": int64(1), "name": "alice", "score": 9.5},
		{"id": int64(2), "name": "bob", "score": 7.25},
		{"id": int64(3), "name": nil, "score": 4.0},
	}
	return rows, []string{"id", "name", "score"}
}

func TestRenderExportCSV(t *testing.T) {
	rows, columns := sampleRows()
	renderer := NewExportRenderer()

	file, err := renderer.RenderExport(rows, columns, models.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.MimeType)
	assert.True(t, strings.HasPrefix(file.Name, "export_"))
	assert.True(t, strings.HasSuffix(file.Name, ".csv"))

	records, err := csv.NewReader(bytes.NewReader(file.Bytes)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"id", "name", "score"}, records[0])
	assert.Equal(t, []string{"1", "alice", "9.5"}, records[1])
	assert.Equal(t, []string{"2", "bob", "7.25"}, records[2])
	assert.Equal(t, []string{"3", "", "4"}, records[3])
}

func TestRenderExportExcel(t *testing.T) {
	rows, columns := sampleRows()
	renderer := NewExportRenderer()

	file, err := renderer.RenderExport(rows, columns, models.FormatExcel)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))

	workbook, err := excelize.OpenReader(bytes.NewReader(file.Bytes))
	require.NoError(t, err)
	defer workbook.Close()

	cells, err := workbook.GetRows(excelSheet)
	require.NoError(t, err)
	require.Len(t, cells, 4)
	assert.Equal(t, []string{"id", "name", "score"}, cells[0])
	assert.Equal(t, "alice", cells[1][1])
	assert.Equal(t, "2", cells[2][0])
}

func TestRenderExportPDF(t *testing.T) {
	rows, columns := sampleRows()
	renderer := NewExportRenderer()

	file, err := renderer.RenderExport(rows, columns, models.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.MimeType)
	assert.True(t, strings.HasSuffix(file.Name, ".pdf"))
	assert.True(t, bytes.HasPrefix(file.Bytes, []byte("%PDF-")))
}

func TestRenderExportParquet(t *testing.T) {
	rows, columns := sampleRows()
	renderer := NewExportRenderer()

	file, err := renderer.RenderExport(rows, columns, models.FormatParquet)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Name, ".parquet"))

	pf, err := parquet.OpenFile(bytes.NewReader(file.Bytes), int64(len(file.Bytes)))
	require.NoError(t, err)
	assert.Equal(t, int64(3), pf.NumRows())

	names := make([]string, 0, 3)
	for _, field := range pf.Schema().Fields() {
		names = append(names, field.Name())
	}
	assert.ElementsMatch(t, columns, names)
}

func TestRenderExportArrow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	rows := []models.Row{
		{"id": int64(1), "name": "alice", "active": true, "seen_at": now},
		{"id": int64(2), "name": nil, "active": false, "seen_at": now.Add(time.Hour)},
	}
	columns := []string{"id", "name", "active", "seen_at"}
	renderer := NewExportRenderer()

	file, err := renderer.RenderExport(rows, columns, models.FormatArrow)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Name, ".arrow"))

	reader, err := ipc.NewFileReader(bytes.NewReader(file.Bytes))
	require.NoError(t, err)
	defer reader.Close()

	require.Equal(t, 1, reader.NumRecords())
	record, err := reader.Read()
	require.NoError(t, err)

	schema := record.Schema()
	require.Equal(t, 4, len(schema.Fields()))
	assert.Equal(t, "id", schema.Field(0).Name)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, schema.Field(0).Type)
	assert.Equal(t, arrow.BinaryTypes.String, schema.Field(1).Type)
	assert.Equal(t, arrow.FixedWidthTypes.Boolean, schema.Field(2).Type)
	assert.Equal(t, arrow.FixedWidthTypes.Timestamp_us, schema.Field(3).Type)

	require.EqualValues(t, 2, record.NumRows())
	ids := record.Column(0).(*array.Int64)
	assert.Equal(t, int64(1), ids.Value(0))
	assert.Equal(t, int64(2), ids.Value(1))
	names := record.Column(1).(*array.String)
	assert.Equal(t, "alice", names.Value(0))
	assert.True(t, names.IsNull(1))
}

func TestRenderExportUnknownFormat(t *testing.T) {
	rows, columns := sampleRows()
	renderer := NewExportRenderer()

	file, err := renderer.RenderExport(rows, columns, models.ExportFormat("yaml"))
	assert.Nil(t, file)
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnsupportedFormat, errors.GetCode(err))
}

func TestRenderExportEmptyRows(t *testing.T) {
	renderer := NewExportRenderer()

	for _, format := range []models.ExportFormat{
		models.FormatCSV, models.FormatExcel, models.FormatPDF,
		models.FormatParquet, models.FormatArrow,
	} {
		t.Run(string(format), func(t *testing.T) {
			file, err := renderer.RenderExport(nil, []string{"id", "name"}, format)
			require.NoError(t, err)
			assert.NotEmpty(t, file.Bytes)
		})
	}
}

func TestExportFileNames(t *testing.T) {
	original := nowFunc
	nowFunc = func() time.Time {
		return time.Date(2024, 3, 15, 9, 45, 30, 0, time.UTC)
	}
	defer func() { nowFunc = original }()

	assert.Equal(t, "export_20240315_094530.csv", ExportFileName(models.FormatCSV))
	assert.Equal(t, "export_20240315_094530.xlsx", ExportFileName(models.FormatExcel))
	assert.Equal(t, "export_20240315_094530.parquet", ExportFileName(models.FormatParquet))
	assert.Equal(t, "chart_20240315_094530.png", ChartFileName())
}
