package models

import (
	"time"

	"github.com/google/uuid"
)

// Turn is the immutable record of one user message after NLU classification.
// It is produced once per incoming message and never mutated afterwards.
type Turn struct {
	ID        string    `json:"id"`
	Intent    string    `json:"intent"`
	Entities  []Entity  `json:"entities"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn record for a classified message.
func NewTurn(intent, text string, entities []Entity) *Turn {
	return &Turn{
		ID:        uuid.New().String(),
		Intent:    intent,
		Entities:  entities,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// Entity is a structured value extracted from the user's text, together with
// its candidate real-world resolutions as delivered by the NLU front-end.
type Entity struct {
	Type       string      `json:"type"`    // place, date, duration, mode, ...
	Surface    string      `json:"surface"` // text as the user wrote it
	Candidates []Candidate `json:"candidates"`
	Confidence float64     `json:"confidence"`
}

// Candidate is one possible resolution of an entity. The ID is a stable
// external identifier (e.g. a geoname id); Region and Population are the
// disambiguating attributes used for clarification questions and tie-breaks.
type Candidate struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"` // display form, e.g. "London, UK"
	Region     string  `json:"region"`
	Population int64   `json:"population"`
	Confidence float64 `json:"confidence"`
}
