// Package dialogue holds per-conversation state: the slot store and the
// turn state machine. A conversation is mutated by exactly one in-flight
// turn at a time; serialization is enforced by the conversation service,
// not here.
package dialogue

import (
	"wayfarer/internal/models"
)

// SlotState is the lifecycle of a single slot.
type SlotState string

const (
	SlotUnset   SlotState = "unset"
	SlotPending SlotState = "pending_clarification"
	SlotFilled  SlotState = "filled"
)

// Slot is a named, typed value collected for the active intent.
type Slot struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Value       string    `json:"value"`
	CandidateID string    `json:"candidate_id,omitempty"`
	State       SlotState `json:"state"`
}

// SlotStore is the per-conversation key-value memory of collected entities.
type SlotStore struct {
	slots map[string]*Slot
}

// NewSlotStore creates an empty slot store.
func NewSlotStore() *SlotStore {
	return &SlotStore{slots: make(map[string]*Slot)}
}

// Fill sets a slot value, overwriting any prior value (last-write-wins
// within a conversation) and moving the slot out of pending-clarification.
func (s *SlotStore) Fill(name, slotType, value, candidateID string) {
	s.slots[name] = &Slot{
		Name:        name,
		Type:        slotType,
		Value:       value,
		CandidateID: candidateID,
		State:       SlotFilled,
	}
}

// MarkPending records that a slot is awaiting clarification.
func (s *SlotStore) MarkPending(name, slotType string) {
	s.slots[name] = &Slot{Name: name, Type: slotType, State: SlotPending}
}

// Clear removes a slot entirely, returning it to unset.
func (s *SlotStore) Clear(name string) {
	delete(s.slots, name)
}

// Get returns a copy of the named slot. ok is false when the slot is unset.
func (s *SlotStore) Get(name string) (Slot, bool) {
	slot, ok := s.slots[name]
	if !ok {
		return Slot{Name: name, State: SlotUnset}, false
	}
	return *slot, true
}

// Filled reports whether the named slot holds a value.
func (s *SlotStore) Filled(name string) bool {
	slot, ok := s.slots[name]
	return ok && slot.State == SlotFilled
}

// MissingRequired returns the required slot names with no filled value, in
// schema order. An empty result means the intent is ready for dispatch.
func (s *SlotStore) MissingRequired(schema *models.IntentSchema) []string {
	var missing []string
	for _, def := range schema.Required {
		if !s.Filled(def.Name) {
			missing = append(missing, def.Name)
		}
	}
	return missing
}

// Values returns the filled slots as a plain name→value map, the shape the
// dispatcher consumes.
func (s *SlotStore) Values() map[string]string {
	out := make(map[string]string, len(s.slots))
	for name, slot := range s.slots {
		if slot.State == SlotFilled {
			out[name] = slot.Value
		}
	}
	return out
}

// Reset drops all slots.
func (s *SlotStore) Reset() {
	s.slots = make(map[string]*Slot)
}

// Snapshot returns a deep copy used for turn-boundary rollback.
func (s *SlotStore) Snapshot() map[string]Slot {
	snap := make(map[string]Slot, len(s.slots))
	for name, slot := range s.slots {
		snap[name] = *slot
	}
	return snap
}

// Restore replaces the store contents with a snapshot.
func (s *SlotStore) Restore(snap map[string]Slot) {
	s.slots = make(map[string]*Slot, len(snap))
	for name, slot := range snap {
		copied := slot
		s.slots[name] = &copied
	}
}
