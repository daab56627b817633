package repositories

import (
	"database/sql"
	"fmt"
	"unicode/utf8"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
)

// ScanRows drains a result set into rows keyed by column name, preserving
// the select-list column order separately since Go maps do not.
func ScanRows(rows *sql.Rows) ([]models.Row, []string, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeQueryFailed, "failed to read result columns")
	}

	out := make([]models.Row, 0, 16)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeQueryFailed, "failed to scan result row")
		}
		row := make(models.Row, len(columns))
		for i, name := range columns {
			row[name] = sanitizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeQueryFailed, "failed while iterating result rows")
	}
	return out, columns, nil
}

// sanitizeValue makes driver values safe for JSON and text rendering.
// Byte slices become UTF-8 strings when valid, hex otherwise.
func sanitizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		if utf8.Valid(val) {
			return string(val)
		}
		return fmt.Sprintf("\\x%x", val)
	default:
		return v
	}
}

// CollectTableInfo assembles introspection rows shaped as
// (table_name, column_name, data_type) into per-table column lists. Rows
// must arrive ordered by table then ordinal position; both backends'
// catalog queries guarantee that.
func CollectTableInfo(rows *sql.Rows) ([]TableInfo, error) {
	tables := make([]TableInfo, 0, 8)
	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return nil, errors.Wrap(err, errors.CodeSchemaUnavailable, "failed to scan schema row")
		}
		if len(tables) == 0 || tables[len(tables)-1].Name != tableName {
			tables = append(tables, TableInfo{Name: tableName})
		}
		last := &tables[len(tables)-1]
		last.Columns = append(last.Columns, ColumnInfo{Name: columnName, Type: dataType})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeSchemaUnavailable, "failed while iterating schema rows")
	}
	return tables, nil
}
