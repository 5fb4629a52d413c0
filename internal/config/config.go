// Package config provides configuration loading for mcp-kb.
package config

import (
	"errors"
	"fmt"

	"github.com/alejunco/mcp-kb/internal/vectorstore"
)

// ErrInvalidConfig indicates invalid or missing configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full server configuration, populated from environment
// variables.
type Config struct {
	Postgres  PostgresConfig  `koanf:"postgres"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Vector    VectorConfig    `koanf:"vector"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Chromem   ChromemConfig   `koanf:"chromem"`
	Log       LogConfig       `koanf:"log"`
}

// PostgresConfig holds the Postgres connection settings.
type PostgresConfig struct {
	// ConnectionString is the full connection string, including
	// credentials. Required when the pgvector store is selected.
	ConnectionString Secret `koanf:"connection_string"`
}

// OpenAIConfig holds the embedding API credentials.
type OpenAIConfig struct {
	// APIKey authenticates against the OpenAI (or compatible) API.
	APIKey Secret `koanf:"api_key"`

	// BaseURL overrides the API endpoint for OpenAI-compatible servers.
	BaseURL string `koanf:"base_url"`
}

// VectorConfig selects the index and backend.
type VectorConfig struct {
	// IndexName is the table or collection holding the knowledge base.
	IndexName string `koanf:"index_name"`

	// Dimension is the embedding dimension the index is created with.
	Dimension int `koanf:"dimension"`

	// Store selects the backend: "pgvector" or "chromem".
	Store string `koanf:"store"`
}

// EmbeddingConfig selects the embedding model.
type EmbeddingConfig struct {
	Model string `koanf:"model"`
}

// ChromemConfig holds settings for the embedded chromem backend.
type ChromemConfig struct {
	// Path is the persistence directory. Empty keeps data in memory.
	Path string `koanf:"path"`

	// Compress enables gzip compression of persisted data.
	Compress bool `koanf:"compress"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the encoder: json or console.
	Format string `koanf:"format"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Vector.IndexName == "" {
		cfg.Vector.IndexName = "knowledge_base"
	}
	if cfg.Vector.Dimension == 0 {
		cfg.Vector.Dimension = 1536
	}
	if cfg.Vector.Store == "" {
		cfg.Vector.Store = vectorstore.ProviderPgVector
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate checks the configuration for completeness and consistency.
func (c *Config) Validate() error {
	if err := vectorstore.ValidateIndexName(c.Vector.IndexName); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Vector.Dimension <= 0 {
		return fmt.Errorf("%w: VECTOR_DIMENSION must be positive, got %d", ErrInvalidConfig, c.Vector.Dimension)
	}

	switch c.Vector.Store {
	case vectorstore.ProviderPgVector:
		if !c.Postgres.ConnectionString.IsSet() {
			return fmt.Errorf("%w: POSTGRES_CONNECTION_STRING is required", ErrInvalidConfig)
		}
	case vectorstore.ProviderChromem:
		// Embedded store, no connection settings required.
	default:
		return fmt.Errorf("%w: VECTOR_STORE must be %q or %q, got %q",
			ErrInvalidConfig, vectorstore.ProviderPgVector, vectorstore.ProviderChromem, c.Vector.Store)
	}

	if !c.OpenAI.APIKey.IsSet() && c.OpenAI.BaseURL == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is required", ErrInvalidConfig)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: LOG_LEVEL must be debug, info, warn, or error, got %q", ErrInvalidConfig, c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: LOG_FORMAT must be json or console, got %q", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}
