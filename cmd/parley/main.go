// Package main provides the entry point for the parley data assistant.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TFMV/parley/cmd/parley/config"
	"github.com/TFMV/parley/cmd/parley/middleware"
	"github.com/TFMV/parley/cmd/parley/server"
	"github.com/TFMV/parley/pkg/secrets"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley natural language data assistant",
	Long: `Parley answers natural language questions with approved, read-only SQL.

Questions are classified by a language model, generated SQL is validated
and held for explicit human approval, and approved results come back as
summaries, export files, or charts.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Parley HTTP server",
	Long: `Start the Parley HTTP server with the specified configuration.

Example:
  parley serve --address :8080 --dsn ./warehouse.db
  parley serve --auth --auth-secret $SECRET --metrics`,
	RunE: runServe,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage credentials and API tokens",
}

var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the HTTP API",
	RunE:  runAuthToken,
}

var authSetKeyCmd = &cobra.Command{
	Use:   "set-key [key]",
	Short: "Store the language model API key in the OS keyring",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthSetKey,
}

var authClearKeyCmd = &cobra.Command{
	Use:   "clear-key",
	Short: "Remove the language model API key from the OS keyring",
	RunE:  runAuthClearKey,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authTokenCmd)
	authCmd.AddCommand(authSetKeyCmd)
	authCmd.AddCommand(authClearKeyCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "config file path")
	pf.String("dsn", "duckdb://:memory:", "database connection string (DuckDB path, md: name, or postgres:// URL)")
	pf.String("motherduck-token", "", "MotherDuck service token")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")
	pf.Int("row-limit", 100, "row cap appended to generated queries")
	pf.Duration("query-timeout", 30*time.Second, "per-query execution timeout")
	pf.String("llm-provider", "gemini", "language model provider (gemini, openai)")
	pf.String("llm-model", "", "language model name")
	pf.String("llm-api-key", "", "language model API key")
	pf.String("llm-base-url", "", "OpenAI-compatible base URL override")
	pf.Float64("llm-temperature", 0.1, "language model sampling temperature")
	pf.Int("schema-fragments", 3, "schema fragments included in the classifier prompt")
	pf.Duration("schema-cache-ttl", 5*time.Minute, "schema introspection cache lifetime")
	pf.String("out-dir", "./parley-out", "directory for exported files and charts")
	pf.Bool("artifact", false, "publish exports and charts to the object store")
	pf.String("artifact-endpoint", "", "object store endpoint")
	pf.String("artifact-access-key", "", "object store access key")
	pf.String("artifact-secret-key", "", "object store secret key")
	pf.String("artifact-bucket", "", "object store bucket")
	pf.String("artifact-prefix", "artifacts", "object key prefix")
	pf.Bool("artifact-ssl", false, "use TLS for the object store")

	serveCmd.Flags().String("address", ":8080", "server listen address")
	serveCmd.Flags().Bool("auth", false, "require bearer tokens")
	serveCmd.Flags().String("auth-secret", "", "HMAC secret for bearer tokens")
	serveCmd.Flags().Bool("metrics", true, "enable Prometheus metrics")
	serveCmd.Flags().Duration("session-ttl", 30*time.Minute, "idle session expiry")
	serveCmd.Flags().Duration("shutdown-timeout", 15*time.Second, "graceful shutdown timeout")

	askCmd.Flags().Bool("approve", false, "approve and execute the generated SQL")

	authTokenCmd.Flags().String("secret", "", "HMAC secret (defaults to the configured auth secret)")
	authTokenCmd.Flags().String("subject", "cli", "token subject")
	authTokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	// Bind flags to viper
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("PARLEY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Parley\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogging(cfg.Log)
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Msg("Starting Parley server")

	ctx := context.Background()
	app, err := server.BuildApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	sessions := server.NewRegistry(cfg.Session.TTL, logger.With().Str("component", "sessions").Logger())
	srv := server.New(app, sessions)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-shutdownCh:
		logger.Info().Msg("Received shutdown signal")
	case err := <-serverErrCh:
		app.Close(ctx)
		return err
	}

	logger.Info().Dur("timeout", cfg.Server.ShutdownTimeout).Msg("Starting graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}
	if err := app.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during application shutdown")
	}

	logger.Info().Msg("Server shutdown complete")
	return nil
}

func runAuthToken(cmd *cobra.Command, args []string) error {
	secret, _ := cmd.Flags().GetString("secret")
	if secret == "" {
		secret = viper.GetString("auth-secret")
	}
	if secret == "" {
		return fmt.Errorf("a signing secret is required (--secret or PARLEY_AUTH_SECRET)")
	}

	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	token, err := middleware.CreateToken(secret, subject, ttl)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runAuthSetKey(cmd *cobra.Command, args []string) error {
	key := ""
	if len(args) == 1 {
		key = strings.TrimSpace(args[0])
	} else {
		pterm.Print("API key: ")
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		key = strings.TrimSpace(line)
	}
	if key == "" {
		return fmt.Errorf("no API key given")
	}

	store, err := secrets.Open()
	if err != nil {
		return fmt.Errorf("failed to open keyring: %w", err)
	}
	if err := store.SetAPIKey(key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	pterm.Success.Println("API key stored in the OS keyring.")
	return nil
}

func runAuthClearKey(cmd *cobra.Command, args []string) error {
	store, err := secrets.Open()
	if err != nil {
		return fmt.Errorf("failed to open keyring: %w", err)
	}
	if err := store.DeleteAPIKey(); err != nil {
		return fmt.Errorf("failed to remove API key: %w", err)
	}

	pterm.Success.Println("API key removed from the OS keyring.")
	return nil
}

func loadConfig() (*config.Config, error) {
	// Load config file if specified
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Build configuration
	cfg := config.DefaultConfig()
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
	cfg.Database.DSN = viper.GetString("dsn")
	cfg.Database.QueryTimeout = viper.GetDuration("query-timeout")
	cfg.Database.RowLimit = viper.GetInt("row-limit")
	cfg.Database.MotherDuckToken = viper.GetString("motherduck-token")
	cfg.LLM.Provider = viper.GetString("llm-provider")
	cfg.LLM.Model = viper.GetString("llm-model")
	cfg.LLM.APIKey = viper.GetString("llm-api-key")
	cfg.LLM.BaseURL = viper.GetString("llm-base-url")
	cfg.LLM.Temperature = viper.GetFloat64("llm-temperature")
	cfg.Schema.ContextFragments = viper.GetInt("schema-fragments")
	cfg.Schema.CacheTTL = viper.GetDuration("schema-cache-ttl")
	cfg.Session.TTL = viper.GetDuration("session-ttl")
	cfg.Server.Address = viper.GetString("address")
	cfg.Server.ShutdownTimeout = viper.GetDuration("shutdown-timeout")
	cfg.Server.Auth.Enabled = viper.GetBool("auth")
	cfg.Server.Auth.Secret = viper.GetString("auth-secret")
	cfg.Server.Metrics.Enabled = viper.GetBool("metrics")
	cfg.Artifact.Enabled = viper.GetBool("artifact")
	cfg.Artifact.Endpoint = viper.GetString("artifact-endpoint")
	cfg.Artifact.AccessKey = viper.GetString("artifact-access-key")
	cfg.Artifact.SecretKey = viper.GetString("artifact-secret-key")
	cfg.Artifact.Bucket = viper.GetString("artifact-bucket")
	cfg.Artifact.Prefix = viper.GetString("artifact-prefix")
	cfg.Artifact.UseSSL = viper.GetBool("artifact-ssl")
	cfg.Output.Dir = viper.GetString("out-dir")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setupLogging(cfg config.LogConfig) zerolog.Logger {
	// Configure zerolog
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	// Set log level
	var logLevel zerolog.Level
	switch cfg.Level {
	case "debug":
		logLevel = zerolog.DebugLevel
		// Enable caller info for debug level
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			short := file
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					short = file[i+1:]
					break
				}
			}
			return fmt.Sprintf("%s:%d", short, line)
		}
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	// Console output goes to stderr so it never interleaves with REPL output
	var out = zerolog.New(os.Stdout)
	if cfg.Format == "console" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	logger := out.
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "parley")

	if logLevel == zerolog.DebugLevel {
		logger = logger.Caller()
	}

	return logger.Logger()
}
