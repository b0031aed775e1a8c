package dialogue

import "log"

// State represents valid dialogue states for a conversation.
type State string

const (
	StateAwaitingIntent        State = "awaiting_intent"
	StateCollectingSlots       State = "collecting_slots"
	StateAwaitingClarification State = "awaiting_clarification"
	StateReadyToDispatch       State = "ready_to_dispatch"
	StateResponding            State = "responding"
)

// validTransitions defines the allowed state transitions for a conversation.
// Any transition not listed here is invalid and will be rejected.
var validTransitions = map[State]map[State]bool{
	StateAwaitingIntent: {
		StateCollectingSlots:       true,
		StateAwaitingClarification: true,
		StateReadyToDispatch:       true,
	},
	StateCollectingSlots: {
		StateCollectingSlots:       true,
		StateAwaitingClarification: true,
		StateReadyToDispatch:       true,
		StateAwaitingIntent:        true, // context switch / abandon
	},
	StateAwaitingClarification: {
		StateAwaitingClarification: true, // re-ask
		StateCollectingSlots:       true,
		StateReadyToDispatch:       true,
		StateAwaitingIntent:        true, // exhausted or context switch
	},
	StateReadyToDispatch: {
		StateResponding: true,
	},
	// Responding is terminal per turn; the conversation returns to
	// AwaitingIntent for the next turn.
	StateResponding: {
		StateAwaitingIntent: true,
	},
}

// Transition validates and performs a dialogue state transition.
// Returns the new state if valid, or the current state if the transition
// is invalid.
func Transition(current, desired State) State {
	allowed, exists := validTransitions[current]
	if !exists || !allowed[desired] {
		log.Printf("⚠️ [DIALOGUE] Invalid state transition: %s → %s (rejected)", current, desired)
		return current
	}
	return desired
}
