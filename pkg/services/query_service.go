// Package services contains business logic implementations.
package services

import (
	"context"
	"time"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/models"
	"github.com/TFMV/parley/pkg/repositories"
)

// queryService implements QueryService. Data-store failures are folded into
// the QueryResult so callers always get a result to render; only the
// Error field distinguishes success from failure.
type queryService struct {
	repo    repositories.QueryRepository
	timeout time.Duration
	logger  Logger
	metrics MetricsCollector
}

// NewQueryService creates a new query service. A non-positive timeout
// disables the per-query deadline.
func NewQueryService(
	repo repositories.QueryRepository,
	timeout time.Duration,
	logger Logger,
	metrics MetricsCollector,
) QueryService {
	return &queryService{
		repo:    repo,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// Execute runs one validated statement and returns its rows or the failure
// message. The statement is assumed to have passed the validator immediately
// beforehand; nothing is re-checked here.
func (s *queryService) Execute(ctx context.Context, sql string) *models.QueryResult {
	timer := s.metrics.StartTimer("query_execution")
	defer timer.Stop()

	s.logger.Debug("Executing query", "query", sql)

	queryCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, columns, err := s.repo.ExecuteQuery(queryCtx, sql)
	executionTime := time.Since(start)

	if err != nil {
		s.metrics.IncrementCounter("query_execution_errors")
		s.logger.Error("Query execution failed",
			"error", err,
			"query", sql,
			"execution_time", executionTime)
		return &models.QueryResult{
			Error:         errors.CauseMessage(err),
			ExecutionTime: executionTime,
		}
	}

	s.metrics.IncrementCounter("successful_queries")
	s.metrics.RecordHistogram("query_execution_time", executionTime.Seconds())
	s.metrics.RecordHistogram("query_result_rows", float64(len(rows)))

	s.logger.Info("Query executed successfully",
		"query", sql,
		"rows", len(rows),
		"execution_time", executionTime)

	return &models.QueryResult{
		Columns:       columns,
		Rows:          rows,
		ExecutionTime: executionTime,
	}
}
