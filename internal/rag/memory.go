package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"wayfarer/internal/models"
)

// MemoryIndex is an in-process vector index using cosine similarity.
// It serves single-instance deployments and tests; the Qdrant index is the
// drop-in alternative for anything bigger.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string]models.Chunk
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{chunks: make(map[string]models.Chunk)}
}

// Upsert stores chunks, replacing any prior chunk with the same id.
func (m *MemoryIndex) Upsert(ctx context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("chunk with empty id")
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		m.chunks[c.ID] = c
	}
	return nil
}

// Search returns the top-k chunks by cosine similarity. Equal similarities
// are broken by chunk id so that identical queries rank identically.
func (m *MemoryIndex) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make([]models.ScoredChunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		scored = append(scored, models.ScoredChunk{
			Chunk:      c,
			Similarity: cosineSimilarity(vector, c.Embedding),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of indexed chunks.
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks), nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-norm vectors score zero rather than erroring; they can
// only come from a misconfigured embedder and must not sink a turn.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
