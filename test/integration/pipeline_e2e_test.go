package integration

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/TFMV/parley/client"
	"github.com/TFMV/parley/cmd/parley/config"
	"github.com/TFMV/parley/cmd/parley/server"
	"github.com/TFMV/parley/pkg/artifact"
	"github.com/TFMV/parley/pkg/classify"
	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/handlers"
	"github.com/TFMV/parley/pkg/infrastructure/metrics"
	"github.com/TFMV/parley/pkg/infrastructure/pool"
	"github.com/TFMV/parley/pkg/models"
	"github.com/TFMV/parley/pkg/render"
	"github.com/TFMV/parley/pkg/repositories/duckdb"
	"github.com/TFMV/parley/pkg/schema"
	"github.com/TFMV/parley/pkg/services"
	"github.com/TFMV/parley/test/utils"
)

// PipelineE2ETestSuite drives the full conversation pipeline against a
// file-backed DuckDB database with scripted model output. Only the language
// model is faked; validation, execution, and dispatch are the real thing.
type PipelineE2ETestSuite struct {
	suite.Suite

	dbPath     string
	pool       pool.ConnectionPool
	classifier *utils.ScriptedProvider
	summarizer *utils.ScriptedProvider
	metrics    *utils.ServiceMetrics

	conversation handlers.ConversationHandler
	approval     handlers.ApprovalHandler
	schemas      schema.Provider

	ctx context.Context
}

func TestPipelineE2ETestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping pipeline E2E test in short mode")
	}
	suite.Run(t, new(PipelineE2ETestSuite))
}

func (s *PipelineE2ETestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.dbPath = filepath.Join(s.T().TempDir(), "sales.duckdb")
	s.seedDatabase()

	logger := zerolog.New(zerolog.NewTestWriter(s.T()))
	plLogger := &utils.PipelineLogger{Logger: logger}
	s.metrics = utils.NewServiceMetrics()
	handlerMetrics := utils.NewHandlerMetrics()

	var err error
	s.pool, err = pool.New(pool.Config{
		Driver:             "duckdb",
		DSN:                duckdb.NormalizeDSN(s.dbPath, ""),
		MaxOpenConnections: 4,
		MaxIdleConnections: 2,
		HealthCheckPeriod:  time.Minute,
	}, logger)
	require.NoError(s.T(), err)

	queryRepo := duckdb.NewQueryRepository(s.dbPath, "", logger)
	schemaRepo := duckdb.NewSchemaRepository(s.pool, logger)
	s.schemas = schema.NewProvider(schemaRepo, 5*time.Minute, logger)

	s.classifier = utils.NewScriptedProvider()
	s.summarizer = utils.NewScriptedProvider()

	validator := services.NewSQLValidator(100)
	queryService := services.NewQueryService(queryRepo, 30*time.Second, plLogger, s.metrics)
	dispatch := services.NewDispatchService(
		classify.NewSummarizer(s.summarizer, logger),
		render.NewExportRenderer(),
		render.NewChartRenderer(),
		artifact.NewDisabledPublisher(),
		plLogger,
		s.metrics,
	)
	approvalService := services.NewApprovalService(validator, queryService, dispatch, plLogger, s.metrics)

	s.conversation = handlers.NewConversationHandler(
		classify.NewClassifier(s.classifier, logger),
		s.schemas,
		approvalService,
		3,
		plLogger,
		handlerMetrics,
	)
	s.approval = handlers.NewApprovalHandler(approvalService, plLogger, handlerMetrics)
}

func (s *PipelineE2ETestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PipelineE2ETestSuite) seedDatabase() {
	db, err := sql.Open("duckdb", s.dbPath)
	require.NoError(s.T(), err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE sales (region VARCHAR, amount DOUBLE, sold_on DATE)`)
	require.NoError(s.T(), err)
	_, err = db.Exec(`INSERT INTO sales VALUES
		('north', 120, DATE '2026-01-05'),
		('south',  80, DATE '2026-01-09'),
		('north',  60, DATE '2026-02-01')`)
	require.NoError(s.T(), err)
}

func (s *PipelineE2ETestSuite) TestApproveFlow() {
	s.classifier.Enqueue(`{"type": "sql", "sql": "SELECT region, SUM(amount) AS total FROM sales GROUP BY region ORDER BY total DESC"}`)
	s.summarizer.Enqueue("The north region leads with 180.")

	state := models.NewSessionState("e2e-approve")
	payload, err := s.conversation.ProcessUtterance(s.ctx, state, "total sales by region")
	require.NoError(s.T(), err)

	s.Equal(models.PayloadApproval, payload.Kind)
	s.Equal("This query requires approval before it runs.", payload.Text)
	s.Contains(payload.SQL, "SELECT region")
	s.True(state.HasPending())

	result := s.approval.Approve(s.ctx, state)
	s.Equal(models.PayloadTable, result.Kind)
	s.Equal("The north region leads with 180.", result.Text)
	s.Equal([]string{"region", "total"}, result.Columns)
	s.Require().Len(result.Rows, 2)
	s.Equal("north", result.Rows[0]["region"])
	s.Equal(180.0, result.Rows[0]["total"])

	s.False(state.HasPending())
	s.Len(state.LastResultRows, 2)
	s.GreaterOrEqual(s.metrics.CounterCount("approved_executions"), 1)
}

func (s *PipelineE2ETestSuite) TestDenyFlow() {
	s.classifier.Enqueue(`{"type": "sql", "sql": "SELECT region FROM sales"}`)

	state := models.NewSessionState("e2e-deny")
	payload, err := s.conversation.ProcessUtterance(s.ctx, state, "show regions")
	require.NoError(s.T(), err)
	s.Equal(models.PayloadApproval, payload.Kind)

	result := s.approval.Deny(s.ctx, state)
	s.Equal(models.PayloadText, result.Kind)
	s.Equal("SQL execution denied.", result.Text)
	s.False(state.HasPending())
	s.Nil(state.LastResultRows)
}

func (s *PipelineE2ETestSuite) TestSupersedeReplacesPendingAction() {
	s.classifier.Enqueue(
		`{"type": "sql", "sql": "SELECT region FROM sales WHERE region = 'east'"}`,
		`{"type": "sql", "sql": "SELECT CAST(COUNT(*) AS BIGINT) AS n FROM sales"}`,
	)

	state := models.NewSessionState("e2e-supersede")
	_, err := s.conversation.ProcessUtterance(s.ctx, state, "eastern sales")
	require.NoError(s.T(), err)
	firstID := state.Pending.ID

	payload, err := s.conversation.ProcessUtterance(s.ctx, state, "how many sales are there")
	require.NoError(s.T(), err)
	s.Equal(models.PayloadApproval, payload.Kind)
	s.Require().True(state.HasPending())
	s.NotEqual(firstID, state.Pending.ID)
	s.Contains(state.Pending.SQL, "COUNT(*)")

	s.summarizer.Enqueue("There are three sales on record.")
	result := s.approval.Approve(s.ctx, state)
	s.Equal(models.PayloadTable, result.Kind)
	s.Require().Len(result.Rows, 1)
	s.Equal(int64(3), result.Rows[0]["n"])
}

func (s *PipelineE2ETestSuite) TestValidatorRejectsWrites() {
	s.classifier.Enqueue(`{"type": "sql", "sql": "DELETE FROM sales"}`)

	state := models.NewSessionState("e2e-validator")
	payload, err := s.conversation.ProcessUtterance(s.ctx, state, "remove everything")
	require.NoError(s.T(), err)

	s.Equal(models.PayloadText, payload.Kind)
	s.False(state.HasPending())

	// The table must be untouched.
	db, errOpen := sql.Open("duckdb", s.dbPath)
	require.NoError(s.T(), errOpen)
	defer db.Close()
	var n int
	require.NoError(s.T(), db.QueryRow("SELECT COUNT(*) FROM sales").Scan(&n))
	s.Equal(3, n)
}

func (s *PipelineE2ETestSuite) TestAnswerIntentSkipsApproval() {
	s.classifier.Enqueue(`{"type": "message", "content": "I can only read data, not modify it."}`)

	state := models.NewSessionState("e2e-answer")
	payload, err := s.conversation.ProcessUtterance(s.ctx, state, "can you drop a table?")
	require.NoError(s.T(), err)

	s.Equal(models.PayloadText, payload.Kind)
	s.Equal("I can only read data, not modify it.", payload.Text)
	s.False(state.HasPending())
}

func (s *PipelineE2ETestSuite) TestExportFlow() {
	s.classifier.Enqueue(`{"type": "sql_and_export", "sql": "SELECT region, amount FROM sales ORDER BY amount DESC", "format": "csv"}`)

	state := models.NewSessionState("e2e-export")
	payload, err := s.conversation.ProcessUtterance(s.ctx, state, "export all sales as csv")
	require.NoError(s.T(), err)
	s.Equal(models.PayloadApproval, payload.Kind)

	result := s.approval.Approve(s.ctx, state)
	s.Equal(models.PayloadFile, result.Kind)
	s.Equal("Here you go! Your CSV file with 3 rows is ready.", result.Text)
	s.Contains(result.FileName, ".csv")
	s.Equal("text/csv", result.MimeType)
	s.Contains(string(result.FileBytes), "region")
	s.Contains(string(result.FileBytes), "north")
}

func (s *PipelineE2ETestSuite) TestChartFromPriorResults() {
	s.classifier.Enqueue(`{"type": "sql", "sql": "SELECT region, SUM(amount) AS total FROM sales GROUP BY region ORDER BY total DESC"}`)
	s.summarizer.Enqueue("Two regions, north in front.")

	state := models.NewSessionState("e2e-chart")
	_, err := s.conversation.ProcessUtterance(s.ctx, state, "total sales by region")
	require.NoError(s.T(), err)
	s.approval.Approve(s.ctx, state)
	s.Require().Len(state.LastResultRows, 2)

	// Charting prior results needs no approval round.
	s.classifier.Enqueue(`{"type": "chart", "chart_type": "bar", "x_column": "region", "y_column": "total"}`)
	payload, err := s.conversation.ProcessUtterance(s.ctx, state, "chart that")
	require.NoError(s.T(), err)

	s.Equal(models.PayloadChart, payload.Kind)
	s.Equal(models.MimeTypePNG, payload.MimeType)
	s.True(bytes.HasPrefix(payload.FileBytes, []byte("\x89PNG")), "chart bytes should be a PNG")
	s.False(state.HasPending())

	// Remembered preferences fill in the columns on the next request.
	s.classifier.Enqueue(`{"type": "chart", "chart_type": "pie"}`)
	payload, err = s.conversation.ProcessUtterance(s.ctx, state, "make it a pie instead")
	require.NoError(s.T(), err)
	s.Equal(models.PayloadChart, payload.Kind)
	s.Contains(payload.Text, "pie")
}

func (s *PipelineE2ETestSuite) TestResolutionWithoutPendingAction() {
	state := models.NewSessionState("e2e-idle")

	s.Equal("No pending SQL to approve.", s.approval.Approve(s.ctx, state).Text)
	s.Equal("No pending SQL to deny.", s.approval.Deny(s.ctx, state).Text)
	s.Equal("Session cleared.", s.approval.Clear(s.ctx, state).Text)
}

func (s *PipelineE2ETestSuite) TestClassifierOutage() {
	s.classifier.Fail(fmt.Errorf("socket closed"))
	defer s.classifier.Fail(nil)

	state := models.NewSessionState("e2e-outage")
	_, err := s.conversation.ProcessUtterance(s.ctx, state, "anything")
	require.Error(s.T(), err)
	s.Equal(errors.CodeClassifierUnavailable, errors.GetCode(err))
}

func (s *PipelineE2ETestSuite) TestSchemaIntrospection() {
	fragments, err := s.schemas.Retrieve(s.ctx, "sales", 10)
	require.NoError(s.T(), err)
	s.Require().NotEmpty(fragments)
	s.Contains(fragments[0], "sales")
	s.Contains(fragments[0], "region")
	s.Contains(fragments[0], "amount")
}

// TestHTTPConversation runs the same flow through the HTTP server and the
// typed client.
func (s *PipelineE2ETestSuite) TestHTTPConversation() {
	cfg := config.DefaultConfig()
	cfg.Database.DSN = s.dbPath
	cfg.Server.Auth.Enabled = false
	cfg.Server.Metrics.Enabled = false

	logger := zerolog.New(zerolog.NewTestWriter(s.T()))
	app := &server.App{
		Config:       cfg,
		Logger:       logger,
		Collector:    metrics.NewNoOpCollector(),
		Pool:         s.pool,
		Conversation: s.conversation,
		Approval:     s.approval,
		Schema:       s.schemas,
		Publisher:    artifact.NewDisabledPublisher(),
	}
	registry := server.NewRegistry(0, logger)
	defer registry.Close()

	ts := httptest.NewServer(server.New(app, registry).Handler())
	defer ts.Close()

	c := client.New(ts.URL)
	require.NoError(s.T(), c.Health(s.ctx))

	s.classifier.Enqueue(`{"type": "sql", "sql": "SELECT region, amount FROM sales ORDER BY amount DESC"}`)
	ask, err := c.Ask(s.ctx, "", "list all sales")
	require.NoError(s.T(), err)
	s.NotEmpty(ask.SessionID)
	s.Equal(models.PayloadApproval, ask.Payload.Kind)

	pending, err := c.Pending(s.ctx, ask.SessionID)
	require.NoError(s.T(), err)
	s.Require().NotNil(pending)
	s.Contains(pending.SQL, "ORDER BY amount")

	s.summarizer.Enqueue("Three sales, the biggest in the north.")
	payload, err := c.Approve(s.ctx, ask.SessionID)
	require.NoError(s.T(), err)
	s.Equal(models.PayloadTable, payload.Kind)
	s.Equal("Three sales, the biggest in the north.", payload.Text)
	s.Len(payload.Rows, 3)
	s.Equal([]string{"region", "amount"}, payload.Columns)

	require.NoError(s.T(), c.Clear(s.ctx, ask.SessionID))
	pending, err = c.Pending(s.ctx, ask.SessionID)
	require.NoError(s.T(), err)
	s.Nil(pending)
}
