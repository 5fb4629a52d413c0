// Package vectorstore defines the interface for vector index operations.
package vectorstore

import (
	"context"
	"errors"
	"regexp"
)

// Sentinel errors for vector store operations.
var (
	// ErrIndexNotFound is returned when an index has never been created.
	ErrIndexNotFound = errors.New("index not found")

	// ErrNotFound is returned when a record id does not exist in the index.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidIndexName indicates index name validation failure.
	ErrInvalidIndexName = errors.New("invalid index name")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyRecords indicates empty or nil records.
	ErrEmptyRecords = errors.New("empty or nil records")

	// ErrUnsupportedMetric indicates a similarity metric the backend cannot serve.
	ErrUnsupportedMetric = errors.New("unsupported similarity metric")

	// ErrConnectionFailed indicates the store backend is unreachable.
	ErrConnectionFailed = errors.New("failed to connect to vector store")
)

// Metric identifies the similarity metric of an index. It is fixed at index
// creation and immutable thereafter.
type Metric string

// MetricCosine is the only metric this service creates indexes with. Scores
// are cosine similarity rescaled into [0,1]-comparable values, higher is
// more similar.
const MetricCosine Metric = "cosine"

// Store is the interface for vector index operations.
//
// Implementations are transport-agnostic: the primary backend stores vectors
// in Postgres with the pgvector extension, and an embedded chromem backend
// serves development and tests. The store is the sole arbiter of isolation
// between concurrent upserts, queries, and deletes; no higher-level locking
// is layered on top.
type Store interface {
	// EnsureIndex creates the named index with the given dimension and
	// metric if it does not exist. Idempotent: an existing index is left
	// untouched, even when its dimension differs - a mismatch surfaces
	// later at upsert time as a store-level error. Concurrent creators
	// rely on the backend's own idempotent-create semantics.
	EnsureIndex(ctx context.Context, name string, dimension int, metric Metric) error

	// DescribeIndex returns record count, dimension, and metric for the
	// named index. Returns ErrIndexNotFound if it was never created.
	DescribeIndex(ctx context.Context, name string) (*IndexInfo, error)

	// Upsert writes records into the index in one batched call and returns
	// the ids under which they were stored (generated when a record carries
	// none). The batch is not atomic: a failure mid-batch may leave a
	// prefix of records persisted, reported as a single error without
	// rollback.
	Upsert(ctx context.Context, name string, records []Record) ([]string, error)

	// Query returns up to topK records nearest to vector, ordered by
	// descending similarity score, restricted to records whose metadata
	// matches every key/value pair in filter (exact-match conjunction) and
	// whose score is at least minScore. topK larger than the number of
	// stored records returns all available records; an empty index returns
	// an empty slice, not an error.
	Query(ctx context.Context, name string, vector []float32, topK int, filter map[string]any, minScore float32) ([]QueryResult, error)

	// DeleteByID removes a single record. Returns ErrNotFound if no record
	// with that id exists.
	DeleteByID(ctx context.Context, name string, id string) error

	// Close releases the store connection. Called once at shutdown.
	Close() error
}

// indexNameRe restricts index names to SQL-safe identifiers: the pgvector
// backend interpolates the name as a table name.
var indexNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// ValidateIndexName rejects names that cannot be used as identifiers.
func ValidateIndexName(name string) error {
	if !indexNameRe.MatchString(name) {
		return ErrInvalidIndexName
	}
	return nil
}
