package duckdb

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/infrastructure/pool"
	"github.com/TFMV/parley/pkg/repositories"
)

const describeTablesQuery = `
SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'main'
ORDER BY table_name, ordinal_position`

// schemaRepository introspects DuckDB table structure through the shared
// connection pool. Introspection reads catalog views only, so it rides the
// pooled connection rather than the per-query read-only path.
type schemaRepository struct {
	pool   pool.ConnectionPool
	logger zerolog.Logger
}

// NewSchemaRepository creates a DuckDB schema repository.
func NewSchemaRepository(pool pool.ConnectionPool, logger zerolog.Logger) repositories.SchemaRepository {
	return &schemaRepository{
		pool:   pool,
		logger: logger,
	}
}

// DescribeTables returns every table in the main schema with its columns in
// ordinal order.
func (r *schemaRepository) DescribeTables(ctx context.Context) ([]repositories.TableInfo, error) {
	db, err := r.pool.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get connection from pool")
	}

	rows, err := db.QueryContext(ctx, describeTablesQuery)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSchemaUnavailable, "failed to introspect schema")
	}
	defer rows.Close()

	tables, err := repositories.CollectTableInfo(rows)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().Int("tables", len(tables)).Msg("Introspected schema")
	return tables, nil
}
