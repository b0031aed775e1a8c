package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"wayfarer/internal/models"
)

// fakeEmbedder returns a fixed vector for any text.
type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, nil
}

// fakeGenerator echoes the context it was given.
type fakeGenerator struct {
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, query string, contextChunks []string) (string, error) {
	f.calls++
	return fmt.Sprintf("answer based on %d chunks: %s", len(contextChunks), strings.Join(contextChunks, " | ")), nil
}

func seedIndex(t *testing.T, chunks ...models.Chunk) *MemoryIndex {
	t.Helper()
	index := NewMemoryIndex()
	if err := index.Upsert(context.Background(), chunks); err != nil {
		t.Fatalf("Failed to seed index: %v", err)
	}
	return index
}

func TestAnswer_EmptyIndex(t *testing.T) {
	gen := &fakeGenerator{}
	p := NewPipeline(&fakeEmbedder{vector: []float32{1, 0}}, NewMemoryIndex(), gen, 5, 0.7, 2000)

	res, err := p.Answer(context.Background(), "train travel in europe")
	if err != nil {
		t.Fatalf("Empty index should not be an error: %v", err)
	}
	if res.Grounded {
		t.Error("Empty index result must be ungrounded")
	}
	if res.ErrorKind != models.ErrEmptyIndex {
		t.Errorf("Expected empty_index, got %s", res.ErrorKind)
	}
	if gen.calls != 0 {
		t.Error("Generator must not run against an empty index")
	}
}

func TestAnswer_NoRelevantContext(t *testing.T) {
	// Orthogonal vectors: similarity 0, below any sensible threshold.
	index := seedIndex(t, models.Chunk{ID: "c1", Embedding: []float32{0, 1}, Text: "packing tips"})
	gen := &fakeGenerator{}
	p := NewPipeline(&fakeEmbedder{vector: []float32{1, 0}}, index, gen, 5, 0.7, 2000)

	res, err := p.Answer(context.Background(), "unrelated")
	if err != nil {
		t.Fatalf("Irrelevant context should not be an error: %v", err)
	}
	if res.Grounded || res.ErrorKind != models.ErrNoRelevantContext {
		t.Errorf("Expected ungrounded no_relevant_context, got grounded=%v kind=%s", res.Grounded, res.ErrorKind)
	}
	if gen.calls != 0 {
		t.Error("Generator must not fabricate an answer from irrelevant context")
	}
}

func TestAnswer_GroundedWithSources(t *testing.T) {
	index := seedIndex(t,
		models.Chunk{ID: "rail-01", Embedding: []float32{1, 0}, Text: "night trains connect most european capitals"},
		models.Chunk{ID: "rail-02", Embedding: []float32{0.9, 0.1}, Text: "rail emits far less co2 than flying"},
	)
	p := NewPipeline(&fakeEmbedder{vector: []float32{1, 0}}, index, &fakeGenerator{}, 5, 0.7, 2000)

	res, err := p.Answer(context.Background(), "is train travel greener?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !res.Grounded {
		t.Fatalf("Expected grounded result, got kind=%s", res.ErrorKind)
	}
	ids := res.Context.SourceIDs()
	if len(ids) != 2 || ids[0] != "rail-01" {
		t.Errorf("Expected rank-ordered sources led by rail-01, got %v", ids)
	}
	if !strings.Contains(res.Answer, "2 chunks") {
		t.Errorf("Generator should see both chunks, got %q", res.Answer)
	}
}

func TestAnswer_ContextBudgetDropsWholeChunks(t *testing.T) {
	big := strings.Repeat("x", 90)
	small := strings.Repeat("y", 30)
	index := seedIndex(t,
		models.Chunk{ID: "a-big", Embedding: []float32{1, 0}, Text: big},
		models.Chunk{ID: "b-huge", Embedding: []float32{0.99, 0.01}, Text: strings.Repeat("z", 200)},
		models.Chunk{ID: "c-small", Embedding: []float32{0.98, 0.02}, Text: small},
	)
	p := NewPipeline(&fakeEmbedder{vector: []float32{1, 0}}, index, &fakeGenerator{}, 5, 0.5, 125)

	res, err := p.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	// b-huge overflows the 125-char budget and is dropped entirely;
	// c-small still fits after it. No chunk is ever truncated.
	ids := res.Context.SourceIDs()
	if len(ids) != 2 || ids[0] != "a-big" || ids[1] != "c-small" {
		t.Fatalf("Expected [a-big c-small], got %v", ids)
	}
	if res.Context.TotalChars != len(big)+len(small) {
		t.Errorf("Expected total %d chars, got %d", len(big)+len(small), res.Context.TotalChars)
	}
	for _, c := range res.Context.Chunks {
		if len(c.Text) != 90 && len(c.Text) != 30 {
			t.Errorf("Chunk was truncated to %d chars", len(c.Text))
		}
	}
}

func TestSearch_TieBrokenByChunkID(t *testing.T) {
	// Identical embeddings: similarity ties must fall back to id order.
	index := seedIndex(t,
		models.Chunk{ID: "chunk-b", Embedding: []float32{1, 0}, Text: "b"},
		models.Chunk{ID: "chunk-a", Embedding: []float32{1, 0}, Text: "a"},
		models.Chunk{ID: "chunk-c", Embedding: []float32{1, 0}, Text: "c"},
	)

	for i := 0; i < 10; i++ {
		got, err := index.Search(context.Background(), []float32{1, 0}, 3)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if got[0].ID != "chunk-a" || got[1].ID != "chunk-b" || got[2].ID != "chunk-c" {
			t.Fatalf("Tie-break by id violated on call %d: %v", i, []string{got[0].ID, got[1].ID, got[2].ID})
		}
	}
}

func TestMemoryIndex_UpsertReplacesAndCounts(t *testing.T) {
	index := NewMemoryIndex()
	ctx := context.Background()

	if err := index.Upsert(ctx, []models.Chunk{{ID: "c1", Embedding: []float32{1}, Text: "v1"}}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := index.Upsert(ctx, []models.Chunk{{ID: "c1", Embedding: []float32{1}, Text: "v2"}}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	n, err := index.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Expected count 1, got %d (err=%v)", n, err)
	}

	got, _ := index.Search(ctx, []float32{1}, 1)
	if got[0].Text != "v2" {
		t.Errorf("Upsert should replace chunk text, got %q", got[0].Text)
	}

	if err := index.Upsert(ctx, []models.Chunk{{ID: "", Embedding: []float32{1}}}); err == nil {
		t.Error("Upsert should reject a chunk without id")
	}
	if err := index.Upsert(ctx, []models.Chunk{{ID: "c2"}}); err == nil {
		t.Error("Upsert should reject a chunk without embedding")
	}
}
