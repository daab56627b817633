package render

import (
	"bytes"

	"github.com/parquet-go/parquet-go"

	"github.com/TFMV/parley/pkg/models"
)

// renderParquet builds a flat optional-field schema from the result columns
// and writes one row group. Column types are inferred from the first non-nil
// value; timestamps and anything exotic are written as strings.
func renderParquet(rows []models.Row, columns []string) ([]byte, error) {
	group := parquet.Group{}
	kinds := make(map[string]scalarKind, len(columns))
	for _, col := range columns {
		kind := inferColumnKind(rows, col)
		kinds[col] = kind
		group[col] = parquet.Optional(parquetNode(kind))
	}
	schema := parquet.NewSchema("export", group)

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[any](&buf, schema)

	batch := make([]any, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]interface{}, len(columns))
		for _, col := range columns {
			if v, ok := parquetValue(row[col], kinds[col]); ok {
				record[col] = v
			}
		}
		batch = append(batch, record)
	}

	if len(batch) > 0 {
		if _, err := writer.Write(batch); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parquetNode(kind scalarKind) parquet.Node {
	switch kind {
	case kindInt64:
		return parquet.Int(64)
	case kindFloat64:
		return parquet.Leaf(parquet.DoubleType)
	case kindBool:
		return parquet.Leaf(parquet.BooleanType)
	default:
		return parquet.String()
	}
}

// parquetValue coerces a cell to the column's inferred type. A false return
// means null; mixed-type cells that cannot coerce also become null rather
// than failing the whole export.
func parquetValue(v interface{}, kind scalarKind) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	switch kind {
	case kindInt64:
		if n, ok := toInt64(v); ok {
			return n, true
		}
	case kindFloat64:
		if f, ok := toFloat(v); ok {
			return f, true
		}
	case kindBool:
		if b, ok := v.(bool); ok {
			return b, true
		}
	default:
		return formatScalar(v), true
	}
	return nil, false
}
