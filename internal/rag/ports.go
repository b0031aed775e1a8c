// Package rag implements the retrieval-augmented answer pipeline: embed the
// query, search the vector index, assemble a bounded context, and generate
// a grounded answer. Retrieval (embed → search → assemble) is deterministic
// for fixed index contents; only generation is not.
package rag

import (
	"context"

	"wayfarer/internal/models"
)

// Embedder turns text into a fixed-dimension vector. Deterministic for a
// given model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer conditioned on the query and retrieved
// context. Modeled as externally nondeterministic.
type Generator interface {
	Generate(ctx context.Context, query string, contextChunks []string) (string, error)
}

// Index is the shared, read-mostly vector index. Upsert is an
// administrative path and must not block concurrent reads.
type Index interface {
	Upsert(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
}
