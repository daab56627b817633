package render

import (
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/TFMV/parley/pkg/models"
)

const excelSheet = "Data"

// renderExcel writes a workbook with a single "Data" sheet: header row in
// row 1, data rows below. Native scalar types keep their Excel typing.
func renderExcel(rows []models.Row, columns []string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(excelSheet)
	if err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(excelSheet, cell, col); err != nil {
			return nil, err
		}
	}

	for r, row := range rows {
		for i, col := range columns {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(excelSheet, cell, excelValue(row[col])); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// excelValue passes through the types excelize formats natively and
// stringifies the rest.
func excelValue(v interface{}) interface{} {
	switch v.(type) {
	case nil:
		return ""
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time:
		return v
	default:
		return formatScalar(v)
	}
}
