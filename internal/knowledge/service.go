// Package knowledge implements the knowledge base: documents are chunked,
// embedded, and stored as vectors; queries run nearest-neighbor search
// over them.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alejunco/mcp-kb/internal/chunker"
	"github.com/alejunco/mcp-kb/internal/embeddings"
	"github.com/alejunco/mcp-kb/internal/vectorstore"
)

const (
	defaultChunkSize = 512
	defaultTopK      = 5
)

// ErrValidation indicates an invalid request.
var ErrValidation = errors.New("validation failed")

// Config holds the knowledge base settings.
type Config struct {
	// IndexName is the vector index holding the knowledge base.
	IndexName string

	// Dimension is the embedding dimension the index is created with.
	Dimension int
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if err := vectorstore.ValidateIndexName(c.IndexName); err != nil {
		return err
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrValidation, c.Dimension)
	}
	return nil
}

// Service is the knowledge base service.
type Service struct {
	store    vectorstore.Store
	embedder embeddings.Embedder
	config   Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a knowledge base service over the given store and
// embedder.
func NewService(store vectorstore.Store, embedder embeddings.Embedder, config Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrValidation)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrValidation)
	}

	return &Service{
		store:    store,
		embedder: embedder,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Init creates the vector index if it does not exist. Safe to call on
// every startup.
func (s *Service) Init(ctx context.Context) error {
	if err := s.store.EnsureIndex(ctx, s.config.IndexName, s.config.Dimension, vectorstore.MetricCosine); err != nil {
		return fmt.Errorf("ensuring index %s: %w", s.config.IndexName, err)
	}
	s.logger.Info("knowledge base ready",
		zap.String("index", s.config.IndexName),
		zap.Int("dimension", s.config.Dimension),
	)
	return nil
}

// Ingest chunks the document, embeds every chunk, and upserts the
// resulting records. The batch is not atomic: if a write fails part way,
// the already-written chunks stay in the index and the error says so.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	chunkSize := req.ChunkSize
	if chunkSize == 0 {
		chunkSize = defaultChunkSize
	}

	chunks, err := chunker.Split(req.Content, chunkSize, req.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	addedAt := s.now().UTC().Format(time.RFC3339)
	records := make([]vectorstore.Record, len(chunks))
	for i, chunk := range chunks {
		metadata := map[string]any{
			"text":        chunk,
			"chunkIndex":  i,
			"totalChunks": len(chunks),
		}
		for k, v := range req.Metadata {
			metadata[k] = v
		}
		metadata["addedAt"] = addedAt

		records[i] = vectorstore.Record{
			Vector:   vectors[i],
			Metadata: metadata,
		}
	}

	ids, err := s.store.Upsert(ctx, s.config.IndexName, records)
	if err != nil {
		return nil, fmt.Errorf("storing %d chunks: %w", len(records), err)
	}

	s.logger.Info("ingested document",
		zap.String("index", s.config.IndexName),
		zap.Int("chunks", len(chunks)),
	)

	return &IngestResult{
		ChunksAdded: len(ids),
		IDs:         ids,
	}, nil
}

// Query embeds the search text and runs nearest-neighbor search. Results
// below MinScore are dropped even if the backend applied its own
// threshold, so the cutoff holds regardless of backend behavior.
func (s *Service) Query(ctx context.Context, req QueryRequest) ([]QueryMatch, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	if req.MinScore < 0 || req.MinScore > 1 {
		return nil, fmt.Errorf("%w: minScore must be in [0, 1], got %g", ErrValidation, req.MinScore)
	}
	topK := req.TopK
	if topK == 0 {
		topK = defaultTopK
	}
	if topK < 1 {
		return nil, fmt.Errorf("%w: topK must be at least 1, got %d", ErrValidation, topK)
	}

	vector, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	minScore := float32(req.MinScore)
	results, err := s.store.Query(ctx, s.config.IndexName, vector, topK, req.Filter, minScore)
	if err != nil {
		return nil, fmt.Errorf("querying index %s: %w", s.config.IndexName, err)
	}

	matches := make([]QueryMatch, 0, len(results))
	for _, res := range results {
		if res.Score < minScore {
			continue
		}
		text, _ := res.Metadata["text"].(string)
		matches = append(matches, QueryMatch{
			ID:       res.ID,
			Text:     text,
			Score:    res.Score,
			Metadata: res.Metadata,
		})
	}

	s.logger.Debug("query completed",
		zap.String("index", s.config.IndexName),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}

// Describe reports the index name, record count, dimension, and metric.
func (s *Service) Describe(ctx context.Context) (*vectorstore.IndexInfo, error) {
	info, err := s.store.DescribeIndex(ctx, s.config.IndexName)
	if err != nil {
		return nil, fmt.Errorf("describing index %s: %w", s.config.IndexName, err)
	}
	return info, nil
}

// Delete removes one stored chunk by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	if err := s.store.DeleteByID(ctx, s.config.IndexName, id); err != nil {
		return fmt.Errorf("deleting %s: %w", id, err)
	}

	s.logger.Info("deleted record",
		zap.String("index", s.config.IndexName),
		zap.String("id", id),
	)

	return nil
}
