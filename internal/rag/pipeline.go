package rag

import (
	"context"
	"fmt"
	"log/slog"

	"wayfarer/internal/models"
)

// Pipeline runs the retrieval-augmented answer flow.
type Pipeline struct {
	embedder      Embedder
	index         Index
	generator     Generator
	topK          int
	minSimilarity float64
	contextBudget int // max total characters of assembled context
}

// NewPipeline wires the retrieval pipeline.
func NewPipeline(embedder Embedder, index Index, generator Generator, topK int, minSimilarity float64, contextBudget int) *Pipeline {
	if topK <= 0 {
		topK = 5
	}
	return &Pipeline{
		embedder:      embedder,
		index:         index,
		generator:     generator,
		topK:          topK,
		minSimilarity: minSimilarity,
		contextBudget: contextBudget,
	}
}

// Answer embeds the query, retrieves the top-k chunks, assembles a bounded
// context and generates a grounded answer.
//
// Ungrounded outcomes (empty index, nothing above the relevance threshold)
// come back as a result with Grounded=false so the composer can deflect;
// only infrastructure faults (embedder, index, generator) return an error.
func (p *Pipeline) Answer(ctx context.Context, query string) (*models.RetrievalResult, error) {
	count, err := p.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect index: %w", err)
	}
	if count == 0 {
		return &models.RetrievalResult{ErrorKind: models.ErrEmptyIndex}, nil
	}

	vector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	scored, err := p.index.Search(ctx, vector, p.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	if len(scored) == 0 || scored[0].Similarity < p.minSimilarity {
		best := 0.0
		if len(scored) > 0 {
			best = scored[0].Similarity
		}
		slog.Debug("no relevant context for query", "best_similarity", best, "threshold", p.minSimilarity)
		return &models.RetrievalResult{ErrorKind: models.ErrNoRelevantContext}, nil
	}

	assembled := p.assembleContext(scored)

	texts := make([]string, len(assembled.Chunks))
	for i, c := range assembled.Chunks {
		texts[i] = c.Text
	}

	answer, err := p.generator.Generate(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	return &models.RetrievalResult{
		Context:  assembled,
		Answer:   answer,
		Grounded: true,
	}, nil
}

// assembleContext appends chunks in rank order while the text budget holds.
// A chunk that would overflow the budget is dropped entirely, never
// truncated; later, smaller chunks may still fit.
func (p *Pipeline) assembleContext(scored []models.ScoredChunk) models.RetrievalContext {
	var out models.RetrievalContext
	for _, c := range scored {
		if out.TotalChars+len(c.Text) > p.contextBudget {
			continue
		}
		out.Chunks = append(out.Chunks, c)
		out.TotalChars += len(c.Text)
	}
	return out
}
