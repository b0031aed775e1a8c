package models

// ChatRequest is the turn-level input consumed from the webhook layer.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse carries the ordered response messages for one turn.
// ErrorKind names the classified failure when the turn ended in one, so
// API clients can react without parsing the prose.
type ChatResponse struct {
	SessionID string   `json:"session_id"`
	TurnID    string   `json:"turn_id"`
	Messages  []string `json:"messages"`
	State     string   `json:"state"`
	ErrorKind string   `json:"error_kind,omitempty"`
}

// KnowledgeUpsertRequest is the administrative ingestion payload. Index
// updates are out-of-band; they never run inside turn processing.
type KnowledgeUpsertRequest struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Embedding []float32         `json:"embedding"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
