package rag

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"wayfarer/internal/models"
)

// LoadKnowledgeBase reads a JSONL knowledge base (one chunk per line, with
// precomputed embeddings) and upserts it into the index. This is the
// startup bootstrap path; per-turn processing never touches it.
func LoadKnowledgeBase(ctx context.Context, index Index, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Embedding vectors make lines long; 1 MiB covers any sane chunk.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var chunks []models.Chunk
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var chunk models.Chunk
		if err := json.Unmarshal(raw, &chunk); err != nil {
			return 0, fmt.Errorf("knowledge base line %d: %w", line, err)
		}
		chunks = append(chunks, chunk)
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	if len(chunks) == 0 {
		log.Printf("⚠️  Knowledge base %s contains no chunks", path)
		return 0, nil
	}

	if err := index.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to index knowledge base: %w", err)
	}
	return len(chunks), nil
}
