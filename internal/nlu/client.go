package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wayfarer/internal/models"
)

// Classifier turns raw user text into a classified turn. The dialogue layer
// depends on this interface so tests can inject scripted classifications.
type Classifier interface {
	Parse(ctx context.Context, text string) (*models.Turn, error)
}

// Client calls a Rasa-compatible NLU server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an NLU client for the given server.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type parseRequest struct {
	Text string `json:"text"`
}

// parseResponse mirrors the Rasa /model/parse wire shape. Entity candidates
// arrive under additional_info when an entity linker runs upstream.
type parseResponse struct {
	Intent struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	} `json:"intent"`
	Entities []struct {
		Entity         string  `json:"entity"`
		Value          string  `json:"value"`
		Confidence     float64 `json:"confidence_entity"`
		AdditionalInfo struct {
			Candidates []models.Candidate `json:"candidates"`
		} `json:"additional_info"`
	} `json:"entities"`
	Text string `json:"text"`
}

// Parse classifies one user message.
func (c *Client) Parse(ctx context.Context, text string) (*models.Turn, error) {
	body, err := json.Marshal(parseRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/model/parse", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NLU service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("NLU service returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode parse response: %w", err)
	}

	entities := make([]models.Entity, 0, len(parsed.Entities))
	for _, e := range parsed.Entities {
		entities = append(entities, models.Entity{
			Type:       e.Entity,
			Surface:    e.Value,
			Candidates: e.AdditionalInfo.Candidates,
			Confidence: e.Confidence,
		})
	}

	return models.NewTurn(parsed.Intent.Name, text, entities), nil
}

var _ Classifier = (*Client)(nil)
