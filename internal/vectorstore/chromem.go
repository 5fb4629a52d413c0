package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ChromemConfig holds configuration for the embedded chromem-go backend.
type ChromemConfig struct {
	// Path is the persistence directory. Empty means in-memory only.
	Path string
	// Compress enables gzip compression of persisted collections.
	Compress bool
	// Dimension is the fallback dimension reported by DescribeIndex for
	// collections restored from disk before any EnsureIndex call.
	Dimension int
}

// ChromemStore implements Store on an embedded chromem-go database.
//
// chromem-go computes cosine similarity on normalized vectors and keeps
// everything in memory, optionally persisted to disk. It has no notion of
// a declared dimension, so the store tracks the dimension passed to
// EnsureIndex per collection and falls back to the configured default for
// collections loaded from a previous run.
type ChromemStore struct {
	db     *chromem.DB
	config ChromemConfig
	logger *zap.Logger

	mu   sync.RWMutex
	dims map[string]int
}

// NewChromemStore opens an embedded chromem database, persistent when a
// path is configured and in-memory otherwise.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		db  *chromem.DB
		err error
	)
	if config.Path != "" {
		path := expandHome(config.Path)
		db, err = chromem.NewPersistentDB(path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db at %s: %w", path, err)
		}
		logger.Info("chromem store initialized", zap.String("path", path))
	} else {
		db = chromem.NewDB()
		logger.Info("chromem store initialized", zap.String("path", "(in-memory)"))
	}

	return &ChromemStore{
		db:     db,
		config: config,
		logger: logger,
		dims:   make(map[string]int),
	}, nil
}

// noEmbedFunc guards against accidental server-side embedding. All vectors
// arrive pre-computed through the Store interface.
func noEmbedFunc(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("embedding function not available: vectors must be provided by the caller")
}

// EnsureIndex creates the collection if absent and records its dimension.
func (s *ChromemStore) EnsureIndex(_ context.Context, name string, dimension int, metric Metric) error {
	if err := ValidateIndexName(name); err != nil {
		return err
	}
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, dimension)
	}
	if metric != MetricCosine {
		return fmt.Errorf("%w: %s", ErrUnsupportedMetric, metric)
	}

	if _, err := s.db.GetOrCreateCollection(name, nil, noEmbedFunc); err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	s.mu.Lock()
	s.dims[name] = dimension
	s.mu.Unlock()

	s.logger.Debug("ensured collection",
		zap.String("index", name),
		zap.Int("dimension", dimension),
	)

	return nil
}

// DescribeIndex reports the record count and the tracked dimension.
func (s *ChromemStore) DescribeIndex(_ context.Context, name string) (*IndexInfo, error) {
	if err := ValidateIndexName(name); err != nil {
		return nil, err
	}

	col := s.db.GetCollection(name, noEmbedFunc)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}

	s.mu.RLock()
	dimension, ok := s.dims[name]
	s.mu.RUnlock()
	if !ok {
		dimension = s.config.Dimension
	}

	return &IndexInfo{
		Name:      name,
		Count:     col.Count(),
		Dimension: dimension,
		Metric:    MetricCosine,
	}, nil
}

// Upsert adds records one at a time; the batch is not atomic and a failure
// is reported with the number of records already written.
func (s *ChromemStore) Upsert(ctx context.Context, name string, records []Record) ([]string, error) {
	if err := ValidateIndexName(name); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyRecords
	}

	col := s.db.GetCollection(name, noEmbedFunc)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}

		content, _ := rec.Metadata["text"].(string)
		doc := chromem.Document{
			ID:        id,
			Metadata:  toStringMap(rec.Metadata),
			Embedding: rec.Vector,
			Content:   content,
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return ids[:i], fmt.Errorf("adding record %d of %d to %s (%d records already written): %w",
				i+1, len(records), name, i, err)
		}
		ids[i] = id
	}

	s.logger.Debug("upserted records",
		zap.String("index", name),
		zap.Int("count", len(records)),
	)

	return ids, nil
}

// Query runs nearest-neighbor search with exact-match metadata filtering.
// chromem rejects nResults beyond the stored document count, so topK is
// clamped and an empty collection yields an empty result set.
func (s *ChromemStore) Query(ctx context.Context, name string, vector []float32, topK int, filter map[string]any, minScore float32) ([]QueryResult, error) {
	if err := ValidateIndexName(name); err != nil {
		return nil, err
	}
	if topK < 1 {
		return nil, fmt.Errorf("%w: topK must be at least 1, got %d", ErrInvalidConfig, topK)
	}

	col := s.db.GetCollection(name, noEmbedFunc)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}

	count := col.Count()
	if count == 0 {
		return []QueryResult{}, nil
	}
	if topK > count {
		topK = count
	}

	var where map[string]string
	if len(filter) > 0 {
		where = toStringMap(filter)
	}

	found, err := col.QueryEmbedding(ctx, vector, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", name, err)
	}

	results := make([]QueryResult, 0, len(found))
	for _, res := range found {
		if res.Similarity < minScore {
			continue
		}
		results = append(results, QueryResult{
			ID:       res.ID,
			Score:    res.Similarity,
			Metadata: fromStringMap(res.Metadata),
		})
	}

	return results, nil
}

// DeleteByID removes one record, reporting ErrNotFound for unknown IDs.
func (s *ChromemStore) DeleteByID(ctx context.Context, name string, id string) error {
	if err := ValidateIndexName(name); err != nil {
		return err
	}

	col := s.db.GetCollection(name, noEmbedFunc)
	if col == nil {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}

	if _, err := col.GetByID(ctx, id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("deleting from %s: %w", name, err)
	}

	s.logger.Debug("deleted record",
		zap.String("index", name),
		zap.String("id", id),
	)

	return nil
}

// Close is a no-op: persistent collections are written through on every
// mutation and the in-memory database needs no teardown.
func (s *ChromemStore) Close() error {
	return nil
}

// toStringMap converts metadata to chromem's string-keyed string values.
// Non-string values are JSON-encoded so fromStringMap can round-trip them.
func toStringMap(metadata map[string]any) map[string]string {
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if str, ok := v.(string); ok {
			out[k] = str
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			out[k] = fmt.Sprintf("%v", v)
			continue
		}
		out[k] = string(encoded)
	}
	return out
}

// fromStringMap restores metadata values JSON-encoded by toStringMap.
// Values that do not parse as JSON stay plain strings.
func fromStringMap(metadata map[string]string) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			switch decoded.(type) {
			case float64, bool, map[string]any, []any, nil:
				out[k] = decoded
				continue
			}
		}
		out[k] = v
	}
	return out
}

// expandHome resolves a leading ~ against the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
