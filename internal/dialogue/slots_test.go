package dialogue

import (
	"testing"

	"wayfarer/internal/models"
)

var routeSchema = &models.IntentSchema{
	Intent: "plan_route",
	Target: "plan_route",
	Required: []models.SlotDef{
		{Name: "origin", Type: "place", Prompt: "Where will your trip start?"},
		{Name: "destination", Type: "place", Prompt: "Where are you headed?"},
	},
	Optional: []models.SlotDef{
		{Name: "travel_mode", Type: "mode"},
	},
}

func TestSlotStore_FillRoundTrip(t *testing.T) {
	s := NewSlotStore()

	s.Fill("destination", "place", "Berlin, Germany", "de-berlin")

	slot, ok := s.Get("destination")
	if !ok {
		t.Fatal("Slot should exist after fill")
	}
	if slot.Value != "Berlin, Germany" || slot.State != SlotFilled {
		t.Errorf("Unexpected slot after fill: %+v", slot)
	}

	s.Clear("destination")
	slot, ok = s.Get("destination")
	if ok {
		t.Fatal("Slot should be unset after clear")
	}
	if slot.State != SlotUnset {
		t.Errorf("Cleared slot should report unset, got %s", slot.State)
	}
}

func TestSlotStore_FillOverwritesAndUnpends(t *testing.T) {
	s := NewSlotStore()

	s.MarkPending("destination", "place")
	if slot, _ := s.Get("destination"); slot.State != SlotPending {
		t.Fatalf("Expected pending slot, got %s", slot.State)
	}

	s.Fill("destination", "place", "London, UK", "uk-london")
	s.Fill("destination", "place", "London, Ontario", "ca-london")

	slot, _ := s.Get("destination")
	if slot.State != SlotFilled {
		t.Errorf("Fill should transition pending → filled, got %s", slot.State)
	}
	if slot.Value != "London, Ontario" {
		t.Errorf("Last write should win, got %q", slot.Value)
	}
}

func TestSlotStore_MissingRequiredSchemaOrder(t *testing.T) {
	s := NewSlotStore()

	missing := s.MissingRequired(routeSchema)
	if len(missing) != 2 || missing[0] != "origin" || missing[1] != "destination" {
		t.Fatalf("Expected [origin destination], got %v", missing)
	}

	// Filling the later slot first must keep schema order in the result.
	s.Fill("destination", "place", "Lisbon, Portugal", "pt-lisbon")
	missing = s.MissingRequired(routeSchema)
	if len(missing) != 1 || missing[0] != "origin" {
		t.Fatalf("Expected [origin], got %v", missing)
	}

	s.Fill("origin", "place", "Porto, Portugal", "pt-porto")
	if missing = s.MissingRequired(routeSchema); len(missing) != 0 {
		t.Errorf("Expected no missing slots, got %v", missing)
	}

	// Pending slots do not count as filled.
	s.MarkPending("origin", "place")
	if missing = s.MissingRequired(routeSchema); len(missing) != 1 {
		t.Errorf("Pending slot must still be missing, got %v", missing)
	}
}

func TestSlotStore_SnapshotRestore(t *testing.T) {
	s := NewSlotStore()
	s.Fill("origin", "place", "Madrid, Spain", "es-madrid")

	snap := s.Snapshot()

	s.Fill("origin", "place", "Rome, Italy", "it-rome")
	s.Fill("destination", "place", "Naples, Italy", "it-naples")
	s.Restore(snap)

	slot, _ := s.Get("origin")
	if slot.Value != "Madrid, Spain" {
		t.Errorf("Restore should revert origin, got %q", slot.Value)
	}
	if _, ok := s.Get("destination"); ok {
		t.Error("Restore should drop slots filled after the snapshot")
	}

	// The snapshot is a deep copy, not an alias.
	s.Fill("origin", "place", "Rome, Italy", "it-rome")
	if snap["origin"].Value != "Madrid, Spain" {
		t.Error("Snapshot mutated by later fill")
	}
}

func TestTransition_RejectsInvalid(t *testing.T) {
	if got := Transition(StateAwaitingIntent, StateResponding); got != StateAwaitingIntent {
		t.Errorf("awaiting_intent → responding should be rejected, got %s", got)
	}
	if got := Transition(StateReadyToDispatch, StateResponding); got != StateResponding {
		t.Errorf("ready_to_dispatch → responding should be allowed, got %s", got)
	}
	if got := Transition(StateResponding, StateAwaitingIntent); got != StateAwaitingIntent {
		t.Errorf("responding → awaiting_intent should be allowed, got %s", got)
	}
}

func TestConversation_SwitchIntentKeepsFilledSlots(t *testing.T) {
	c := NewConversation("sess-1")
	c.ActiveIntent = "plan_route"
	c.State = StateCollectingSlots
	c.Slots.Fill("destination", "place", "Berlin, Germany", "de-berlin")
	c.BeginClarification("origin", "place", "springfield", []models.Candidate{{ID: "a"}, {ID: "b"}})

	c.SwitchIntent("ask_weather")

	if c.ActiveIntent != "ask_weather" {
		t.Errorf("Expected active intent ask_weather, got %s", c.ActiveIntent)
	}
	if !c.Slots.Filled("destination") {
		t.Error("Filled slots should survive a context switch")
	}
	if _, ok := c.Slots.Get("origin"); ok {
		t.Error("Pending slot should be dropped on context switch")
	}
	if c.PendingSlot != "" || len(c.PendingCandidates) != 0 {
		t.Error("Clarification bookkeeping should be cleared")
	}
}
