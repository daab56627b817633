package render

import (
	"bytes"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TFMV/parley/pkg/models"
)

// renderArrowIPC writes the result set as an Arrow IPC file with a single
// record batch. Field types are inferred per column; values that do not
// coerce to the inferred type become nulls.
func renderArrowIPC(rows []models.Row, columns []string) ([]byte, error) {
	fields := make([]arrow.Field, len(columns))
	kinds := make([]scalarKind, len(columns))
	for i, col := range columns {
		kind := inferColumnKind(rows, col)
		kinds[i] = kind
		fields[i] = arrow.Field{Name: col, Type: arrowType(kind), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	builder := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer builder.Release()

	for _, row := range rows {
		for i, col := range columns {
			appendArrowValue(builder.Field(i), kinds[i], row[col])
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	var buf bytes.Buffer
	writer, err := ipc.NewFileWriter(&buf, ipc.WithSchema(schema))
	if err != nil {
		return nil, err
	}
	if err := writer.Write(record); err != nil {
		_ = writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func arrowType(kind scalarKind) arrow.DataType {
	switch kind {
	case kindInt64:
		return arrow.PrimitiveTypes.Int64
	case kindFloat64:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindTime:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

func appendArrowValue(b array.Builder, kind scalarKind, v interface{}) {
	if v == nil {
		b.AppendNull()
		return
	}
	switch kind {
	case kindInt64:
		if n, ok := toInt64(v); ok {
			b.(*array.Int64Builder).Append(n)
			return
		}
	case kindFloat64:
		if f, ok := toFloat(v); ok {
			b.(*array.Float64Builder).Append(f)
			return
		}
	case kindBool:
		if val, ok := v.(bool); ok {
			b.(*array.BooleanBuilder).Append(val)
			return
		}
	case kindTime:
		if t, ok := v.(time.Time); ok {
			b.(*array.TimestampBuilder).Append(arrow.Timestamp(t.UnixMicro()))
			return
		}
	default:
		b.(*array.StringBuilder).Append(formatScalar(v))
		return
	}
	b.AppendNull()
}
