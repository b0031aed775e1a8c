package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"wayfarer/internal/models"
	"wayfarer/internal/rag"
)

// KnowledgeHandler handles knowledge base administration requests.
type KnowledgeHandler struct {
	index rag.Index
}

// NewKnowledgeHandler creates a new knowledge handler.
func NewKnowledgeHandler(index rag.Index) *KnowledgeHandler {
	return &KnowledgeHandler{index: index}
}

// Upsert adds or replaces chunks in the knowledge index. Embeddings are
// precomputed by the ingestion side; this endpoint only stores them.
func (h *KnowledgeHandler) Upsert(c *fiber.Ctx) error {
	var req []models.KnowledgeUpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if len(req) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one chunk is required",
		})
	}

	chunks := make([]models.Chunk, 0, len(req))
	for _, r := range req {
		chunks = append(chunks, models.Chunk{
			ID:        r.ID,
			Text:      r.Text,
			Embedding: r.Embedding,
			Metadata:  r.Metadata,
		})
	}

	if err := h.index.Upsert(c.Context(), chunks); err != nil {
		log.Printf("❌ [KNOWLEDGE] Upsert of %d chunks failed: %v", len(chunks), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to index chunks",
		})
	}

	return c.JSON(fiber.Map{
		"indexed": len(chunks),
	})
}

// Stats reports the index size.
func (h *KnowledgeHandler) Stats(c *fiber.Ctx) error {
	count, err := h.index.Count(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to inspect index",
		})
	}
	return c.JSON(fiber.Map{
		"chunks": count,
	})
}
