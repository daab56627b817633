package postgres

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/infrastructure/pool"
	"github.com/TFMV/parley/pkg/repositories"
)

const describeTablesQuery = `
SELECT c.table_name, c.column_name, c.data_type
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = 'public' AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position`

// schemaRepository introspects PostgreSQL table structure through the
// shared connection pool.
type schemaRepository struct {
	pool   pool.ConnectionPool
	logger zerolog.Logger
}

// NewSchemaRepository creates a PostgreSQL schema repository.
func NewSchemaRepository(pool pool.ConnectionPool, logger zerolog.Logger) repositories.SchemaRepository {
	return &schemaRepository{
		pool:   pool,
		logger: logger,
	}
}

// DescribeTables returns every public base table with its columns in
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
