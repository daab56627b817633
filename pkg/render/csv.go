package render

import (
	"bytes"
	"encoding/csv"

	"github.com/TFMV/parley/pkg/models"
)

// renderCSV writes a header row followed by the data rows. Cell values go
// through the shared scalar formatter, so NULLs come out empty.
func renderCSV(rows []models.Row, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, err
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = formatScalar(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
