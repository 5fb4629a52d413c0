package knowledge

// IngestRequest describes a document to chunk, embed, and store.
type IngestRequest struct {
	// Content is the raw document text.
	Content string

	// Metadata is attached to every chunk produced from the document.
	Metadata map[string]any

	// ChunkSize is the maximum chunk length in runes. Zero means the
	// default of 512.
	ChunkSize int

	// ChunkOverlap is the number of runes shared between consecutive
	// chunks.
	ChunkOverlap int
}

// IngestResult reports what an ingest stored.
type IngestResult struct {
	// ChunksAdded is the number of chunks written to the index.
	ChunksAdded int

	// IDs are the record IDs assigned to the chunks, in chunk order.
	IDs []string
}

// QueryRequest describes a similarity search.
type QueryRequest struct {
	// Query is the natural-language search text.
	Query string

	// TopK caps the number of results. Zero means the default of 5.
	TopK int

	// Filter restricts results to records whose metadata contains every
	// given key with an equal value.
	Filter map[string]any

	// MinScore drops results scoring below it. Must be in [0, 1].
	MinScore float64
}

// QueryMatch is a single search result.
type QueryMatch struct {
	// ID is the stored record ID.
	ID string `json:"id"`

	// Text is the chunk text, recovered from record metadata.
	Text string `json:"text"`

	// Score is cosine similarity in [0, 1], higher is closer.
	Score float32 `json:"score"`

	// Metadata is the full stored metadata for the chunk.
	Metadata map[string]any `json:"metadata"`
}
