// Package embeddings generates vector embeddings via langchaingo.
//
// The service wraps langchaingo's OpenAI client, which also speaks to any
// OpenAI-compatible endpoint (TEI, Ollama, LocalAI) through a custom base
// URL. Every returned vector is checked against the configured dimension
// so a misconfigured model fails at the first embed call instead of
// corrupting the index.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

var (
	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrEmbeddingFailed indicates the provider returned an error or a
	// malformed response
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Embedder generates embeddings for documents and queries.
type Embedder interface {
	// EmbedDocuments embeds a batch of texts, one vector per text.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config holds configuration for the embedding service.
type Config struct {
	// APIKey is the API key (required for OpenAI, optional for
	// OpenAI-compatible local servers)
	APIKey string

	// Model is the embedding model to use
	// (e.g., text-embedding-3-small, text-embedding-ada-002)
	Model string

	// BaseURL overrides the API endpoint. Empty uses the OpenAI default.
	BaseURL string

	// Dimension is the expected vector dimension. When positive, every
	// vector the provider returns is validated against it.
	Dimension int
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if c.APIKey == "" && c.BaseURL == "" {
		return fmt.Errorf("%w: API key required", ErrInvalidConfig)
	}
	return nil
}

// Service generates embeddings through a langchaingo embedder.
type Service struct {
	embedder *lcembeddings.EmbedderImpl
	config   Config
	logger   *zap.Logger
}

// NewService creates a new embedding service with the given configuration.
func NewService(config Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for keyless local servers
		apiKey = "placeholder"
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	logger.Info("embedding service initialized",
		zap.String("model", config.Model),
		zap.Int("dimension", config.Dimension),
	)

	return &Service{
		embedder: embedder,
		config:   config,
		logger:   logger,
	}, nil
}

// EmbedDocuments embeds a batch of texts, returning one vector per text
// in input order.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(texts))
	}
	for i, vec := range vectors {
		if err := s.checkDimension(vec); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
	}

	s.logger.Debug("embedded documents", zap.Int("count", len(texts)))

	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if err := s.checkDimension(vector); err != nil {
		return nil, err
	}

	return vector, nil
}

func (s *Service) checkDimension(vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: provider returned an empty vector", ErrEmbeddingFailed)
	}
	if s.config.Dimension > 0 && len(vector) != s.config.Dimension {
		return fmt.Errorf("%w: expected dimension %d, got %d", ErrEmbeddingFailed, s.config.Dimension, len(vector))
	}
	return nil
}
