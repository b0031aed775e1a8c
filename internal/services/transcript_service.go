package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"wayfarer/internal/models"
)

// TranscriptService archives finished turns to MongoDB for later review.
// It is strictly best-effort: the service may run without a database, and a
// failed write never affects the turn that produced it.
type TranscriptService struct {
	collection *mongo.Collection
}

// NewTranscriptService creates the transcript archive. A nil client
// disables archiving entirely.
func NewTranscriptService(client *mongo.Client, database string) *TranscriptService {
	if client == nil {
		return &TranscriptService{}
	}
	return &TranscriptService{
		collection: client.Database(database).Collection("transcripts"),
	}
}

// Enabled reports whether transcripts are being archived.
func (s *TranscriptService) Enabled() bool {
	return s.collection != nil
}

// Append records one completed turn with the replies sent for it.
func (s *TranscriptService) Append(ctx context.Context, sessionID string, turn *models.Turn, replies []string) {
	if s.collection == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	doc := bson.M{
		"session_id": sessionID,
		"turn_id":    turn.ID,
		"intent":     turn.Intent,
		"text":       turn.Text,
		"replies":    replies,
		"created_at": turn.Timestamp,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		log.Printf("⚠️ [TRANSCRIPT] Failed to archive turn %s: %v", turn.ID, err)
	}
}

// PurgeOlderThan removes archived turns past the retention window and
// returns how many were deleted.
func (s *TranscriptService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.collection == nil {
		return 0, nil
	}

	result, err := s.collection.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
