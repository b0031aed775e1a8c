package dialogue

import (
	"time"

	"wayfarer/internal/models"
)

// Conversation owns one slot store and one dialogue state value, identified
// by its session key. It is created on first turn, evicted after an idle
// timeout by the conversation service, and destroyed on explicit reset.
type Conversation struct {
	ID           string
	State        State
	ActiveIntent string
	Slots        *SlotStore

	// Pending clarification, meaningful only in StateAwaitingClarification.
	PendingSlot       string
	PendingSlotType   string
	PendingSurface    string
	PendingCandidates []models.Candidate
	ClarifyAttempts   int

	TurnCount  int
	CreatedAt  time.Time
	LastActive time.Time
}

// NewConversation creates a fresh conversation in the initial state.
func NewConversation(id string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		ID:         id,
		State:      StateAwaitingIntent,
		Slots:      NewSlotStore(),
		CreatedAt:  now,
		LastActive: now,
	}
}

// BeginClarification parks a slot pending the user's choice among
// candidates.
func (c *Conversation) BeginClarification(slotName, slotType, surface string, candidates []models.Candidate) {
	c.Slots.MarkPending(slotName, slotType)
	c.PendingSlot = slotName
	c.PendingSlotType = slotType
	c.PendingSurface = surface
	c.PendingCandidates = candidates
	c.ClarifyAttempts = 0
	c.State = Transition(c.State, StateAwaitingClarification)
}

// EndClarification clears the pending clarification bookkeeping.
func (c *Conversation) EndClarification() {
	c.PendingSlot = ""
	c.PendingSlotType = ""
	c.PendingSurface = ""
	c.PendingCandidates = nil
	c.ClarifyAttempts = 0
}

// SwitchIntent resets slot collection for a new intent (context switch).
// Filled slots survive the switch so follow-up intents can reuse them
// ("what's the weather there?"); only the clarification in progress is
// dropped.
func (c *Conversation) SwitchIntent(intent string) {
	if c.PendingSlot != "" {
		c.Slots.Clear(c.PendingSlot)
	}
	c.EndClarification()
	c.ActiveIntent = intent
	c.State = Transition(c.State, StateCollectingSlots)
}

// Snapshot captures everything a failed turn must roll back.
type Snapshot struct {
	State             State
	ActiveIntent      string
	Slots             map[string]Slot
	PendingSlot       string
	PendingSlotType   string
	PendingSurface    string
	PendingCandidates []models.Candidate
	ClarifyAttempts   int
}

// Snapshot returns a copy of the conversation's mutable state, taken at the
// start of a turn. A single turn's failure must never corrupt or lose slots
// filled by earlier turns.
func (c *Conversation) Snapshot() Snapshot {
	candidates := make([]models.Candidate, len(c.PendingCandidates))
	copy(candidates, c.PendingCandidates)
	return Snapshot{
		State:             c.State,
		ActiveIntent:      c.ActiveIntent,
		Slots:             c.Slots.Snapshot(),
		PendingSlot:       c.PendingSlot,
		PendingSlotType:   c.PendingSlotType,
		PendingSurface:    c.PendingSurface,
		PendingCandidates: candidates,
		ClarifyAttempts:   c.ClarifyAttempts,
	}
}

// Restore rolls the conversation back to a snapshot.
func (c *Conversation) Restore(snap Snapshot) {
	c.State = snap.State
	c.ActiveIntent = snap.ActiveIntent
	c.Slots.Restore(snap.Slots)
	c.PendingSlot = snap.PendingSlot
	c.PendingSlotType = snap.PendingSlotType
	c.PendingSurface = snap.PendingSurface
	c.PendingCandidates = snap.PendingCandidates
	c.ClarifyAttempts = snap.ClarifyAttempts
}

// Touch updates the activity timestamp and turn counter.
func (c *Conversation) Touch() {
	c.TurnCount++
	c.LastActive = time.Now().UTC()
}
