package jobs

import (
	"context"
	"log"
	"time"

	"wayfarer/internal/services"
)

// ConversationCleanupJob prunes the per-session locks left behind after
// idle conversations expire from the registry.
type ConversationCleanupJob struct {
	conversations *services.ConversationService
	interval      time.Duration
	lastRun       time.Time
}

// NewConversationCleanupJob creates the lock pruning job.
func NewConversationCleanupJob(conversations *services.ConversationService, interval time.Duration) *ConversationCleanupJob {
	return &ConversationCleanupJob{
		conversations: conversations,
		interval:      interval,
	}
}

// Run prunes stale session locks.
func (j *ConversationCleanupJob) Run(ctx context.Context) error {
	j.lastRun = time.Now()

	pruned := j.conversations.PruneLocks()
	if pruned > 0 {
		log.Printf("🧹 [CONVERSATION-CLEANUP] Pruned %d stale session locks (%d conversations live)",
			pruned, j.conversations.Count())
	}
	return nil
}

// GetNextRunTime returns when this job should next execute.
func (j *ConversationCleanupJob) GetNextRunTime() time.Time {
	if j.lastRun.IsZero() {
		// First run shortly after startup
		return time.Now().Add(1 * time.Minute)
	}
	return j.lastRun.Add(j.interval)
}
