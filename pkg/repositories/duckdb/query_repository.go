// Package duckdb provides DuckDB implementations of the repository interfaces.
package duckdb

import (
	"context"
	"database/sql"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
	"github.com/TFMV/parley/pkg/repositories"
)

// queryRepository runs validated statements against DuckDB. Every call opens
// a fresh connection from the normalized DSN, so file-backed databases are
// always attached read-only and nothing persists between queries.
type queryRepository struct {
	dsn    string
	logger zerolog.Logger
	open   func(driver, dsn string) (*sql.DB, error)
}

// NewQueryRepository creates a DuckDB query repository. The token is only
// consulted for MotherDuck DSNs.
func NewQueryRepository(dsn, motherDuckToken string, logger zerolog.Logger) repositories.QueryRepository {
	return &queryRepository{
		dsn:    NormalizeDSN(dsn, motherDuckToken),
		logger: logger,
		open:   sql.Open,
	}
}

// ExecuteQuery executes a query and returns rows with their column order.
func (r *queryRepository) ExecuteQuery(ctx context.Context, query string) ([]models.Row, []string, error) {
	r.logger.Debug().Str("query", query).Msg("Executing query")

	db, err := r.open("duckdb", r.dsn)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to open duckdb database")
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.CodeQueryFailed, "failed to execute query: %s", query)
	}
	defer rows.Close()

	return repositories.ScanRows(rows)
}
