// Package repositories defines interfaces for data access operations.
package repositories

import (
	"context"
	"strings"

	"github.com/TFMV/parley/pkg/models"
)

// QueryRepository executes one validated SELECT statement against the data
// store. Implementations open a fresh read-oriented connection per call so
// no state leaks across requests.
type QueryRepository interface {
	// ExecuteQuery runs the statement and returns rows plus the select-list
	// column order.
	ExecuteQuery(ctx context.Context, query string) ([]models.Row, []string, error)
}

// ColumnInfo describes one column of an introspected table.
type ColumnInfo struct {
	Name string
	Type string
}

// TableInfo describes one introspected table.
type TableInfo struct {
	Name    string
	Columns []ColumnInfo
}

// SchemaRepository introspects table structure for the schema context
// provider. It is never part of the validated/executed path.
type SchemaRepository interface {
	// DescribeTables returns every user table with its columns in
	// ordinal order.
	DescribeTables(ctx context.Context) ([]TableInfo, error)
}

// Backend names understood by the wiring layer.
const (
	BackendDuckDB   = "duckdb"
	BackendPostgres = "postgres"
)

// BackendForDSN picks the repository backend for a connection string.
// Postgres URLs go to pgx; everything else (file paths, ":memory:",
// MotherDuck "md:" names) goes to DuckDB.
func BackendForDSN(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return BackendPostgres
	}
	return BackendDuckDB
}
