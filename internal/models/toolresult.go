package models

// ErrorKind classifies every failure that can reach the dialogue layer.
// External faults are converted to one of these at their call boundary;
// the state machine never sees a raw error.
type ErrorKind string

const (
	ErrNone                   ErrorKind = ""
	ErrUnknownIntent          ErrorKind = "unknown_intent"
	ErrIncompleteInput        ErrorKind = "incomplete_input"
	ErrToolTimeout            ErrorKind = "tool_timeout"
	ErrToolUnavailable        ErrorKind = "tool_unavailable"
	ErrEmptyIndex             ErrorKind = "empty_index"
	ErrNoRelevantContext      ErrorKind = "no_relevant_context"
	ErrClarificationExhausted ErrorKind = "clarification_exhausted"
)

// Internal reports whether the kind marks an invariant violation on our side
// (logged for diagnosis, surfaced to the user as a generic apology) rather
// than an external-collaborator failure.
func (k ErrorKind) Internal() bool {
	return k == ErrUnknownIntent || k == ErrIncompleteInput
}

// ToolResult is the terminating outcome of one dispatch. It is immutable
// once produced and cached at most for the lifetime of the turn that
// produced it; weather and routes are time-sensitive, so nothing survives
// the turn.
type ToolResult struct {
	Success   bool           `json:"success"`
	Tool      string         `json:"tool,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Summary   string         `json:"summary,omitempty"` // human-readable digest of the payload
	ErrorKind ErrorKind      `json:"error_kind,omitempty"`
}

// Failure builds a failed result for the given capability.
func Failure(tool string, kind ErrorKind) ToolResult {
	return ToolResult{Success: false, Tool: tool, ErrorKind: kind}
}
