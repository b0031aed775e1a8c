package jobs

import (
	"context"
	"log"
	"time"

	"wayfarer/internal/services"
)

// TranscriptRetentionJob deletes archived transcripts older than the
// retention window. It is a no-op when transcript archiving is disabled.
type TranscriptRetentionJob struct {
	transcripts *services.TranscriptService
	retention   time.Duration
	interval    time.Duration
	lastRun     time.Time
}

// NewTranscriptRetentionJob creates the retention job.
func NewTranscriptRetentionJob(transcripts *services.TranscriptService, retention, interval time.Duration) *TranscriptRetentionJob {
	return &TranscriptRetentionJob{
		transcripts: transcripts,
		retention:   retention,
		interval:    interval,
	}
}

// Run deletes transcripts past the retention window.
func (j *TranscriptRetentionJob) Run(ctx context.Context) error {
	j.lastRun = time.Now()

	if !j.transcripts.Enabled() {
		return nil
	}

	cutoff := time.Now().Add(-j.retention)
	deleted, err := j.transcripts.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("❌ [TRANSCRIPT-RETENTION] Purge failed: %v", err)
		return err
	}
	if deleted > 0 {
		log.Printf("🧹 [TRANSCRIPT-RETENTION] Deleted %d transcripts older than %s",
			deleted, cutoff.Format(time.RFC3339))
	}
	return nil
}

// GetNextRunTime returns when this job should next execute.
func (j *TranscriptRetentionJob) GetNextRunTime() time.Time {
	if j.lastRun.IsZero() {
		return time.Now().Add(5 * time.Minute)
	}
	return j.lastRun.Add(j.interval)
}
