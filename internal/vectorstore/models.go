package vectorstore

// Record is the persisted unit of the index: a vector plus self-describing
// metadata. Metadata always carries the originating chunk text under the
// "text" key so results need no secondary lookup.
type Record struct {
	// ID is the unique record identifier. When empty, the store assigns a
	// UUID at upsert time.
	ID string

	// Vector is the embedding, length equal to the index dimension.
	Vector []float32

	// Metadata contains key-value pairs for filtering and projection.
	Metadata map[string]any
}

// IndexInfo describes an index.
type IndexInfo struct {
	// Name is the index name.
	Name string `json:"name"`

	// Count is the number of records in the index.
	Count int `json:"count"`

	// Dimension is the vector dimensionality declared at creation.
	Dimension int `json:"dimension"`

	// Metric is the similarity metric declared at creation.
	Metric Metric `json:"metric"`
}

// QueryResult is a single similarity search hit.
type QueryResult struct {
	// ID is the record identifier.
	ID string

	// Score is the similarity score in [0,1], higher is more similar.
	Score float32

	// Metadata is the stored record metadata, including the chunk text.
	Metadata map[string]any
}
