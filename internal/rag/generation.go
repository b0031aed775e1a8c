package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// answerPrompt is the grounded-generation template. The instruction to
// admit ignorance matters: the pipeline already refuses irrelevant context,
// and the model must not re-introduce fabrication.
const answerPrompt = `You are a sustainable travel assistant. Use the following context to answer the user's question. If you don't know, say so honestly. Be concise, factual, and eco-friendly.

Context:
%s

Question:
%s

Eco-Travel Answer:`

// HTTPGenerator calls an Ollama-compatible text generation endpoint.
type HTTPGenerator struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewHTTPGenerator creates a generator for the given service and model.
func NewHTTPGenerator(baseURL, model string, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate implements Generator.
func (g *HTTPGenerator) Generate(ctx context.Context, query string, contextChunks []string) (string, error) {
	prompt := fmt.Sprintf(answerPrompt, strings.Join(contextChunks, "\n\n"), query)

	body, err := json.Marshal(generateRequest{Model: g.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generation service returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}
	return strings.TrimSpace(parsed.Response), nil
}
