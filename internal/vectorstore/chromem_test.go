package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChromemStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{}, nil)
	require.NoError(t, err)
	return store
}

func TestChromemStore_EnsureIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestChromemStore(t)

	require.NoError(t, store.EnsureIndex(ctx, "kb", 3, MetricCosine))

	// Idempotent: a second call with the same name succeeds.
	require.NoError(t, store.EnsureIndex(ctx, "kb", 3, MetricCosine))

	t.Run("invalid name", func(t *testing.T) {
		err := store.EnsureIndex(ctx, "no-hyphens", 3, MetricCosine)
		assert.ErrorIs(t, err, ErrInvalidIndexName)
	})

	t.Run("invalid dimension", func(t *testing.T) {
		err := store.EnsureIndex(ctx, "kb", 0, MetricCosine)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unsupported metric", func(t *testing.T) {
		err := store.EnsureIndex(ctx, "kb", 3, Metric("dotproduct"))
		assert.ErrorIs(t, err, ErrUnsupportedMetric)
	})
}

func TestChromemStore_DescribeIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestChromemStore(t)

	t.Run("missing index", func(t *testing.T) {
		_, err := store.DescribeIndex(ctx, "nope")
		assert.ErrorIs(t, err, ErrIndexNotFound)
	})

	require.NoError(t, store.EnsureIndex(ctx, "kb", 3, MetricCosine))

	info, err := store.DescribeIndex(ctx, "kb")
	require.NoError(t, err)
	assert.Equal(t, "kb", info.Name)
	assert.Equal(t, 0, info.Count)
	assert.Equal(t, 3, info.Dimension)
	assert.Equal(t, MetricCosine, info.Metric)

	_, err = store.Upsert(ctx, "kb", []Record{
		{Vector: []float32{1, 0, 0}, Metadata: map[string]any{"text": "a"}},
		{Vector: []float32{0, 1, 0}, Metadata: map[string]any{"text": "b"}},
	})
	require.NoError(t, err)

	info, err = store.DescribeIndex(ctx, "kb")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Count)
}

func TestChromemStore_Upsert(t *testing.T) {
	ctx := context.Background()
	store := newTestChromemStore(t)
	require.NoError(t, store.EnsureIndex(ctx, "kb", 3, MetricCosine))

	t.Run("empty batch", func(t *testing.T) {
		_, err := store.Upsert(ctx, "kb", nil)
		assert.ErrorIs(t, err, ErrEmptyRecords)
	})

	t.Run("missing index", func(t *testing.T) {
		_, err := store.Upsert(ctx, "nope", []Record{{Vector: []float32{1, 0, 0}}})
		assert.ErrorIs(t, err, ErrIndexNotFound)
	})

	t.Run("assigns ids when absent", func(t *testing.T) {
		ids, err := store.Upsert(ctx, "kb", []Record{
			{Vector: []float32{1, 0, 0}, Metadata: map[string]any{"text": "first"}},
			{ID: "fixed-id", Vector: []float32{0, 1, 0}, Metadata: map[string]any{"text": "second"}},
		})
		require.NoError(t, err)
		require.Len(t, ids, 2)
		assert.NotEmpty(t, ids[0])
		assert.Equal(t, "fixed-id", ids[1])
	})

	t.Run("overwrites same id", func(t *testing.T) {
		_, err := store.Upsert(ctx, "kb", []Record{
			{ID: "fixed-id", Vector: []float32{0, 0, 1}, Metadata: map[string]any{"text": "replaced"}},
		})
		require.NoError(t, err)

		results, err := store.Query(ctx, "kb", []float32{0, 0, 1}, 1, nil, 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "fixed-id", results[0].ID)
		assert.Equal(t, "replaced", results[0].Metadata["text"])
	})
}

func TestChromemStore_Query(t *testing.T) {
	ctx := context.Background()
	store := newTestChromemStore(t)
	require.NoError(t, store.EnsureIndex(ctx, "kb", 3, MetricCosine))

	t.Run("empty index yields empty results", func(t *testing.T) {
		results, err := store.Query(ctx, "kb", []float32{1, 0, 0}, 5, nil, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	_, err := store.Upsert(ctx, "kb", []Record{
		{ID: "x", Vector: []float32{1, 0, 0}, Metadata: map[string]any{"text": "x", "topic": "go"}},
		{ID: "y", Vector: []float32{0, 1, 0}, Metadata: map[string]any{"text": "y", "topic": "go"}},
		{ID: "z", Vector: []float32{0, 0, 1}, Metadata: map[string]any{"text": "z", "topic": "rust"}},
	})
	require.NoError(t, err)

	t.Run("nearest first", func(t *testing.T) {
		results, err := store.Query(ctx, "kb", []float32{1, 0, 0}, 3, nil, 0)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "x", results[0].ID)
		assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
	})

	t.Run("topK clamped to count", func(t *testing.T) {
		results, err := store.Query(ctx, "kb", []float32{1, 0, 0}, 50, nil, 0)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("minScore drops distant matches", func(t *testing.T) {
		results, err := store.Query(ctx, "kb", []float32{1, 0, 0}, 3, nil, 0.9)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "x", results[0].ID)
	})

	t.Run("metadata filter conjunction", func(t *testing.T) {
		results, err := store.Query(ctx, "kb", []float32{0, 0, 1}, 3, map[string]any{"topic": "go"}, 0)
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, res := range results {
			assert.Equal(t, "go", res.Metadata["topic"])
		}
	})

	t.Run("invalid topK", func(t *testing.T) {
		_, err := store.Query(ctx, "kb", []float32{1, 0, 0}, 0, nil, 0)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing index", func(t *testing.T) {
		_, err := store.Query(ctx, "nope", []float32{1, 0, 0}, 1, nil, 0)
		assert.ErrorIs(t, err, ErrIndexNotFound)
	})
}

func TestChromemStore_DeleteByID(t *testing.T) {
	ctx := context.Background()
	store := newTestChromemStore(t)
	require.NoError(t, store.EnsureIndex(ctx, "kb", 3, MetricCosine))

	ids, err := store.Upsert(ctx, "kb", []Record{
		{Vector: []float32{1, 0, 0}, Metadata: map[string]any{"text": "a"}},
	})
	require.NoError(t, err)

	t.Run("unknown id", func(t *testing.T) {
		err := store.DeleteByID(ctx, "kb", "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing index", func(t *testing.T) {
		err := store.DeleteByID(ctx, "nope", ids[0])
		assert.ErrorIs(t, err, ErrIndexNotFound)
	})

	t.Run("deletes and is gone", func(t *testing.T) {
		require.NoError(t, store.DeleteByID(ctx, "kb", ids[0]))

		info, err := store.DescribeIndex(ctx, "kb")
		require.NoError(t, err)
		assert.Equal(t, 0, info.Count)

		err = store.DeleteByID(ctx, "kb", ids[0])
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestChromemStore_MetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestChromemStore(t)
	require.NoError(t, store.EnsureIndex(ctx, "kb", 3, MetricCosine))

	metadata := map[string]any{
		"text":        "chunk body",
		"chunkIndex":  float64(2),
		"totalChunks": float64(5),
		"published":   true,
		"source":      "handbook.md",
	}
	_, err := store.Upsert(ctx, "kb", []Record{
		{ID: "doc", Vector: []float32{1, 0, 0}, Metadata: metadata},
	})
	require.NoError(t, err)

	results, err := store.Query(ctx, "kb", []float32{1, 0, 0}, 1, nil, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, metadata, results[0].Metadata)
}

func TestStringMapConversion(t *testing.T) {
	original := map[string]any{
		"text":  "plain string",
		"count": float64(3),
		"flag":  false,
		"tags":  []any{"a", "b"},
	}

	encoded := toStringMap(original)
	assert.Equal(t, "plain string", encoded["text"])
	assert.Equal(t, "3", encoded["count"])
	assert.Equal(t, "false", encoded["flag"])

	decoded := fromStringMap(encoded)
	assert.Equal(t, original, decoded)
}
