package models

// Chunk is a unit of indexed source text with a precomputed embedding.
// Chunks are immutable once indexed and owned by the vector index.
type Chunk struct {
	ID        string            `json:"id"`
	Embedding []float32         `json:"embedding,omitempty"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ScoredChunk is a chunk annotated with its similarity to a query vector.
type ScoredChunk struct {
	Chunk
	Similarity float64 `json:"similarity"`
}

// RetrievalContext is the ordered set of chunks selected for one query,
// bounded by a total text budget. It is not persisted beyond the turn.
type RetrievalContext struct {
	Chunks     []ScoredChunk `json:"chunks"`
	TotalChars int           `json:"total_chars"`
}

// SourceIDs returns the chunk ids backing the context, in rank order.
func (c RetrievalContext) SourceIDs() []string {
	ids := make([]string, len(c.Chunks))
	for i, ch := range c.Chunks {
		ids[i] = ch.ID
	}
	return ids
}

// RetrievalResult is the outcome of one retrieval-augmented answer attempt.
// Grounded is false when the index was empty or nothing relevant was found;
// in that case Answer is empty and ErrorKind says why, so the composer can
// deflect instead of fabricating an answer.
type RetrievalResult struct {
	Context   RetrievalContext `json:"context"`
	Answer    string           `json:"answer"`
	Grounded  bool             `json:"grounded"`
	ErrorKind ErrorKind        `json:"error_kind,omitempty"`
}
