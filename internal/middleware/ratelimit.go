package middleware

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"wayfarer/internal/services"
)

// GlobalRateLimiter limits all API requests per IP. First line of defense
// for single-instance deployments; the session limiter below handles the
// chat path specifically.
func GlobalRateLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(window.Seconds()),
			})
		},
	})
}

// SessionRateLimiter limits chat messages per session through Redis, so the
// budget follows the conversation across instances. With no Redis service
// configured it passes everything through.
func SessionRateLimiter(redis *services.RedisService, perMinute int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if redis == nil || perMinute <= 0 {
			return c.Next()
		}

		var body struct {
			SessionID string `json:"session_id"`
		}
		if err := c.BodyParser(&body); err != nil || body.SessionID == "" {
			// The handler rejects malformed bodies with a clearer message.
			return c.Next()
		}

		key := "chat-rate:" + body.SessionID
		remaining, exceeded, err := redis.CheckRateLimit(c.Context(), key, int64(perMinute), time.Minute)
		if err != nil {
			// Redis being down must not take chat down with it.
			log.Printf("⚠️ [RATE-LIMIT] Redis check failed, allowing request: %v", err)
			return c.Next()
		}
		if exceeded {
			log.Printf("🚫 [RATE-LIMIT] Session %s exceeded chat limit", body.SessionID)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "You're sending messages too quickly. Please wait a moment.",
				"retry_after": 60,
			})
		}

		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		return c.Next()
	}
}
