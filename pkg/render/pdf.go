package render

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/TFMV/parley/pkg/models"
)

const (
	pdfMargin       = 10.0
	pdfMaxCellChars = 28
)

// renderPDF lays the result set out as a bordered table on landscape A4
// pages, with a filled header row and a generated-at footer. Long cell
// values are truncated so columns keep their width.
func renderPDF(rows []models.Row, columns []string) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Query Results", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pageWidth, _ := pdf.GetPageSize()
	colWidth := (pageWidth - 2*pdfMargin) / float64(len(columns))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(224, 224, 224)
	for _, col := range columns {
		pdf.CellFormat(colWidth, 7, truncateCell(col), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		for _, col := range columns {
			pdf.CellFormat(colWidth, 6, truncateCell(formatScalar(row[col])), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	footer := fmt.Sprintf("Generated %s  |  %d rows",
		nowFunc().Format("2006-01-02 15:04:05"), len(rows))
	pdf.CellFormat(0, 5, footer, "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncateCell(s string) string {
	runes := []rune(s)
	if len(runes) <= pdfMaxCellChars {
		return s
	}
	return string(runes[:pdfMaxCellChars-3]) + "..."
}
