package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"wayfarer/internal/rag"
	"wayfarer/internal/services"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	conversations *services.ConversationService
	index         rag.Index
	redis         *services.RedisService
	transcripts   *services.TranscriptService
}

// NewHealthHandler creates a new health handler. redis may be nil when
// rate limiting runs without a shared store.
func NewHealthHandler(conversations *services.ConversationService, index rag.Index, redis *services.RedisService, transcripts *services.TranscriptService) *HealthHandler {
	return &HealthHandler{
		conversations: conversations,
		index:         index,
		redis:         redis,
		transcripts:   transcripts,
	}
}

// Handle responds with server health status: index size and whether the
// optional stores are reachable.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	chunks, err := h.index.Count(c.Context())
	if err != nil {
		chunks = -1
	}

	redisUp := h.redis != nil && h.redis.Ping(c.Context()) == nil

	return c.JSON(fiber.Map{
		"status":        "healthy",
		"conversations": h.conversations.Count(),
		"kb_chunks":     chunks,
		"redis":         redisUp,
		"transcripts":   h.transcripts != nil && h.transcripts.Enabled(),
		"timestamp":     time.Now().Format(time.RFC3339),
	})
}
