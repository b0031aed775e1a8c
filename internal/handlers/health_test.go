package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"wayfarer/internal/models"
	"wayfarer/internal/rag"
	"wayfarer/internal/services"
)

func TestHealth_ReportsIndexSizeAndStoreFlags(t *testing.T) {
	index := rag.NewMemoryIndex()
	if err := index.Upsert(context.Background(), []models.Chunk{
		{ID: "kb-1", Embedding: []float32{1, 0}, Text: "trains beat planes on co2"},
		{ID: "kb-2", Embedding: []float32{0, 1}, Text: "ferries vary widely"},
	}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	handler := NewHealthHandler(
		services.NewConversationService(time.Minute),
		index,
		nil, // no Redis configured
		services.NewTranscriptService(nil, ""),
	)

	app := fiber.New()
	app.Get("/health", handler.Handle)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}

	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}
	if body["kb_chunks"] != float64(2) {
		t.Errorf("Expected 2 indexed chunks, got %v", body["kb_chunks"])
	}
	if body["redis"] != false {
		t.Errorf("Unconfigured Redis should report false, got %v", body["redis"])
	}
	if body["transcripts"] != false {
		t.Errorf("Disabled transcripts should report false, got %v", body["transcripts"])
	}
}
