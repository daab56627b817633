// Package postgres provides PostgreSQL implementations of the repository
// interfaces via the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
	"github.com/TFMV/parley/pkg/repositories"
)

// queryRepository runs validated statements against PostgreSQL. The DSN is
// normalized to force default_transaction_read_only=on so the session
// refuses writes even if a statement slipped past validation.
type queryRepository struct {
	dsn    string
	logger zerolog.Logger
	open   func(driver, dsn string) (*sql.DB, error)
}

// NewQueryRepository creates a PostgreSQL query repository.
func NewQueryRepository(dsn string, logger zerolog.Logger) repositories.QueryRepository {
	return &queryRepository{
		dsn:    ReadOnlyDSN(dsn),
		logger: logger,
		open:   sql.Open,
	}
}

// ExecuteQuery executes a query and returns rows with their column order.
func (r *queryRepository) ExecuteQuery(ctx context.Context, query string) ([]models.Row, []string, error) {
	r.logger.Debug().Str("query", query).Msg("Executing query")

	db, err := r.open("pgx", r.dsn)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to open postgres connection")
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.CodeQueryFailed, "failed to execute query: %s", query)
	}
	defer rows.Close()

	return repositories.ScanRows(rows)
}
