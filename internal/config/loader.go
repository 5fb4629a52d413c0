package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Load builds the configuration from environment variables.
//
// Variables map to config fields by splitting on the first underscore
// (section.field_name pattern):
//
//	POSTGRES_CONNECTION_STRING -> postgres.connection_string
//	OPENAI_API_KEY             -> openai.api_key
//	VECTOR_INDEX_NAME          -> vector.index_name
//	VECTOR_DIMENSION           -> vector.dimension
//	VECTOR_STORE               -> vector.store
//	EMBEDDING_MODEL            -> embedding.model
//	CHROMEM_PATH               -> chromem.path
//	CHROMEM_COMPRESS           -> chromem.compress
//	LOG_LEVEL                  -> log.level
//	LOG_FORMAT                 -> log.format
//
// Missing values fall back to defaults; the result is validated before
// being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("", ".", func(s string) string {
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
