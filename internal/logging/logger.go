package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithTurn returns a logger with turn context fields attached.
// Use this for all logging within the processing of a single turn.
func WithTurn(conversationID, turnID, intent string) *slog.Logger {
	return slog.With(
		"conversation_id", conversationID,
		"turn_id", turnID,
		"intent", intent,
	)
}

// WithConversation returns a logger scoped to a conversation.
func WithConversation(conversationID string) *slog.Logger {
	return slog.With("conversation_id", conversationID)
}
