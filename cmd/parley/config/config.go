// Package config provides configuration structures for the parley assistant.
package config

import (
	"fmt"
	"time"
)

// Config represents the assistant configuration.
type Config struct {
	// Logging settings
	Log LogConfig `yaml:"log" json:"log"`

	// Database settings
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Language model settings
	LLM LLMConfig `yaml:"llm" json:"llm"`

	// Schema context settings
	Schema SchemaConfig `yaml:"schema" json:"schema"`

	// Session settings
	Session SessionConfig `yaml:"session" json:"session"`

	// HTTP server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Artifact store settings
	Artifact ArtifactConfig `yaml:"artifact" json:"artifact"`

	// Local output settings
	Output OutputConfig `yaml:"output" json:"output"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // console, json
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	QueryTimeout    time.Duration `yaml:"query_timeout" json:"query_timeout"`
	RowLimit        int           `yaml:"row_limit" json:"row_limit"`
	MotherDuckToken string        `yaml:"motherduck_token" json:"motherduck_token"`
}

// LLMConfig represents language model provider configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider" json:"provider"` // gemini, openai
	Model       string  `yaml:"model" json:"model"`
	APIKey      string  `yaml:"api_key" json:"api_key"`
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// SchemaConfig represents schema context configuration.
type SchemaConfig struct {
	ContextFragments int           `yaml:"context_fragments" json:"context_fragments"`
	CacheTTL         time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// SessionConfig represents conversation session configuration.
type SessionConfig struct {
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Address         string        `yaml:"address" json:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Authentication configuration
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// AuthConfig represents bearer token authentication configuration.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Secret  string `yaml:"secret" json:"secret"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// ArtifactConfig represents object store configuration for published artifacts.
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	UseSSL    bool   `yaml:"use_ssl" json:"use_ssl"`
}

// OutputConfig represents local file output configuration.
type OutputConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// Validate validates the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	if c.Database.DSN == "" {
		c.Database.DSN = "duckdb://:memory:"
	}
	if c.Database.QueryTimeout < 0 {
		return fmt.Errorf("database query timeout must not be negative")
	}
	if c.Database.RowLimit <= 0 {
		c.Database.RowLimit = 100
	}

	switch c.LLM.Provider {
	case "":
		c.LLM.Provider = "gemini"
	case "gemini", "openai":
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0 and 2")
	}

	if c.Schema.ContextFragments <= 0 {
		c.Schema.ContextFragments = 3
	}
	if c.Schema.CacheTTL <= 0 {
		c.Schema.CacheTTL = 5 * time.Minute
	}

	if c.Session.TTL <= 0 {
		c.Session.TTL = 30 * time.Minute
	}

	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Server.Auth.Enabled && c.Server.Auth.Secret == "" {
		return fmt.Errorf("auth requires a secret when enabled")
	}
	if c.Server.Metrics.Path == "" {
		c.Server.Metrics.Path = "/metrics"
	}

	if c.Artifact.Enabled {
		if c.Artifact.Endpoint == "" {
			return fmt.Errorf("artifact store requires an endpoint when enabled")
		}
		if c.Artifact.Bucket == "" {
			return fmt.Errorf("artifact store requires a bucket when enabled")
		}
	}
	if c.Artifact.Prefix == "" {
		c.Artifact.Prefix = "artifacts"
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./parley-out"
	}

	return nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Database: DatabaseConfig{
			DSN:          "duckdb://:memory:",
			QueryTimeout: 30 * time.Second,
			RowLimit:     100,
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Temperature: 0.1,
		},
		Schema: SchemaConfig{
			ContextFragments: 3,
			CacheTTL:         5 * time.Minute,
		},
		Session: SessionConfig{
			TTL: 30 * time.Minute,
		},
		Server: ServerConfig{
			Address:         ":8080",
			ShutdownTimeout: 15 * time.Second,
			Auth: AuthConfig{
				Enabled: false,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Artifact: ArtifactConfig{
			Enabled: false,
			Prefix:  "artifacts",
			UseSSL:  false,
		},
		Output: OutputConfig{
			Dir: "./parley-out",
		},
	}
}
