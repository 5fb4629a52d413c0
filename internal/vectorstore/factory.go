package vectorstore

import (
	"fmt"

	"go.uber.org/zap"
)

// Supported backend providers.
const (
	ProviderPgVector = "pgvector"
	ProviderChromem  = "chromem"
)

// Config selects and configures a vector store backend.
type Config struct {
	// Provider selects the backend: "pgvector" or "chromem".
	Provider string
	Postgres PgVectorConfig
	Chromem  ChromemConfig
}

// New constructs the configured backend.
func New(config Config, logger *zap.Logger) (Store, error) {
	switch config.Provider {
	case ProviderPgVector:
		return NewPgVectorStore(config.Postgres, logger)
	case ProviderChromem:
		return NewChromemStore(config.Chromem, logger)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, config.Provider)
	}
}
