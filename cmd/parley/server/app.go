package server

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/parley/cmd/parley/config"
	"github.com/TFMV/parley/pkg/artifact"
	"github.com/TFMV/parley/pkg/classify"
	"github.com/TFMV/parley/pkg/handlers"
	"github.com/TFMV/parley/pkg/infrastructure/metrics"
	"github.com/TFMV/parley/pkg/infrastructure/pool"
	"github.com/TFMV/parley/pkg/render"
	"github.com/TFMV/parley/pkg/repositories"
	"github.com/TFMV/parley/pkg/repositories/duckdb"
	"github.com/TFMV/parley/pkg/repositories/postgres"
	"github.com/TFMV/parley/pkg/schema"
	"github.com/TFMV/parley/pkg/secrets"
	"github.com/TFMV/parley/pkg/services"
)

// App is the fully wired pipeline. The HTTP server and the interactive CLI
// both drive the handlers it exposes.
type App struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Collector    metrics.Collector
	Pool         pool.ConnectionPool
	Conversation handlers.ConversationHandler
	Approval     handlers.ApprovalHandler
	Schema       schema.Provider
	Publisher    artifact.Publisher

	provider classify.Provider
}

// BuildApp wires repositories, services, and handlers from configuration.
func BuildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	var collector metrics.Collector
	if cfg.Server.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector()
	} else {
		collector = metrics.NewNoOpCollector()
	}

	serviceLogger := &loggerAdapter{logger: logger}
	serviceMetrics := &serviceMetricsAdapter{collector: collector}
	handlerMetrics := &handlerMetricsAdapter{collector: collector}

	backend := repositories.BackendForDSN(cfg.Database.DSN)

	var (
		queryRepo repositories.QueryRepository
		poolCfg   pool.Config
	)
	switch backend {
	case repositories.BackendPostgres:
		queryRepo = postgres.NewQueryRepository(cfg.Database.DSN, logger.With().Str("component", "query_repository").Logger())
		poolCfg = pool.Config{
			Driver:            "pgx",
			DSN:               cfg.Database.DSN,
			HealthCheckPeriod: time.Minute,
		}
	default:
		queryRepo = duckdb.NewQueryRepository(cfg.Database.DSN, cfg.Database.MotherDuckToken, logger.With().Str("component", "query_repository").Logger())
		poolCfg = pool.Config{
			Driver:            "duckdb",
			DSN:               duckdb.NormalizeDSN(cfg.Database.DSN, cfg.Database.MotherDuckToken),
			HealthCheckPeriod: time.Minute,
		}
	}

	schemaPool, err := pool.New(poolCfg, logger.With().Str("component", "pool").Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	var schemaRepo repositories.SchemaRepository
	switch backend {
	case repositories.BackendPostgres:
		schemaRepo = postgres.NewSchemaRepository(schemaPool, logger.With().Str("component", "schema_repository").Logger())
	default:
		schemaRepo = duckdb.NewSchemaRepository(schemaPool, logger.With().Str("component", "schema_repository").Logger())
	}

	provider, err := buildProvider(ctx, cfg.LLM)
	if err != nil {
		schemaPool.Close()
		return nil, err
	}

	publisher, err := buildPublisher(ctx, cfg.Artifact, logger)
	if err != nil {
		schemaPool.Close()
		closeProvider(provider)
		return nil, err
	}

	classifier := classify.NewClassifier(provider, logger.With().Str("component", "classifier").Logger())
	summarizer := classify.NewSummarizer(provider, logger.With().Str("component", "summarizer").Logger())

	validator := services.NewSQLValidator(cfg.Database.RowLimit)
	queryService := services.NewQueryService(queryRepo, cfg.Database.QueryTimeout, serviceLogger, serviceMetrics)
	dispatchService := services.NewDispatchService(
		summarizer,
		render.NewExportRenderer(),
		render.NewChartRenderer(),
		publisher,
		serviceLogger,
		serviceMetrics,
	)
	approvalService := services.NewApprovalService(validator, queryService, dispatchService, serviceLogger, serviceMetrics)

	schemaProvider := schema.NewProvider(schemaRepo, cfg.Schema.CacheTTL, logger.With().Str("component", "schema_provider").Logger())

	conversation := handlers.NewConversationHandler(
		classifier,
		schemaProvider,
		approvalService,
		cfg.Schema.ContextFragments,
		serviceLogger,
		handlerMetrics,
	)
	approval := handlers.NewApprovalHandler(approvalService, serviceLogger, handlerMetrics)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Collector:    collector,
		Pool:         schemaPool,
		Conversation: conversation,
		Approval:     approval,
		Schema:       schemaProvider,
		Publisher:    publisher,
		provider:     provider,
	}, nil
}

// buildProvider creates the configured language model client. The API key is
// resolved from config, environment, or the OS keyring.
func buildProvider(ctx context.Context, cfg config.LLMConfig) (classify.Provider, error) {
	apiKey := secrets.LookupAPIKey(cfg.APIKey, cfg.Provider)

	switch cfg.Provider {
	case "openai":
		return classify.NewOpenAIProvider(classify.OpenAIConfig{
			APIKey:      apiKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
		})
	default:
		return classify.NewGeminiProvider(ctx, classify.GeminiConfig{
			APIKey:      apiKey,
			Model:       cfg.Model,
			Temperature: float32(cfg.Temperature),
		})
	}
}

// buildPublisher creates the artifact publisher, disabled unless configured.
func buildPublisher(ctx context.Context, cfg config.ArtifactConfig, logger zerolog.Logger) (artifact.Publisher, error) {
	if !cfg.Enabled {
		return artifact.NewDisabledPublisher(), nil
	}
	return artifact.NewMinioPublisher(ctx, artifact.MinioConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix,
		UseSSL:    cfg.UseSSL,
	}, logger.With().Str("component", "artifact_publisher").Logger())
}

// closeProvider closes providers that hold client connections.
func closeProvider(p classify.Provider) {
	if closer, ok := p.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// Close releases the app's long-lived resources.
func (a *App) Close(ctx context.Context) error {
	closeProvider(a.provider)

	if err := a.Pool.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Error closing connection pool")
		return err
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
