package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"wayfarer/internal/models"
)

func echoTool(name string, required ...string) *Tool {
	calls := 0
	return &Tool{
		Name:     name,
		Required: required,
		Execute: func(ctx context.Context, inputs map[string]string) (map[string]any, string, error) {
			calls++
			return map[string]any{"calls": calls}, fmt.Sprintf("%s ran", name), nil
		},
	}
}

func routeSchema() *models.IntentSchema {
	return &models.IntentSchema{
		Intent: "plan_route",
		Target: "route",
		Required: []models.SlotDef{
			{Name: "origin", Type: "place"},
			{Name: "destination", Type: "place"},
		},
	}
}

func TestRegister_RejectsDuplicatesAndEmpty(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(echoTool("route")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(echoTool("route")); err == nil {
		t.Error("Duplicate registration should fail")
	}
	if err := r.Register(&Tool{Name: ""}); err == nil {
		t.Error("Empty tool name should fail")
	}
	if err := r.Register(&Tool{Name: "broken"}); err == nil {
		t.Error("Tool without Execute should fail")
	}
	if r.Count() != 1 {
		t.Errorf("Expected 1 registered tool, got %d", r.Count())
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	r := NewRegistry()
	res := r.Dispatch(context.Background(), routeSchema(), map[string]string{"origin": "a", "destination": "b"})

	if res.Success {
		t.Error("Dispatch to unknown tool should fail")
	}
	if res.ErrorKind != models.ErrUnknownIntent {
		t.Errorf("Expected unknown_intent, got %s", res.ErrorKind)
	}
	if !res.ErrorKind.Internal() {
		t.Error("unknown_intent is an internal fault and must be flagged as such")
	}
}

func TestDispatch_MissingRequiredInput(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("route", "origin", "destination")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	res := r.Dispatch(context.Background(), routeSchema(), map[string]string{"origin": "berlin"})
	if res.Success || res.ErrorKind != models.ErrIncompleteInput {
		t.Errorf("Expected incomplete_input, got success=%v kind=%s", res.Success, res.ErrorKind)
	}
}

func TestDispatch_ErrorKindMapping(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&Tool{
		Name: "timeout",
		Execute: func(ctx context.Context, inputs map[string]string) (map[string]any, string, error) {
			return nil, "", fmt.Errorf("fetch: %w", context.DeadlineExceeded)
		},
	})
	_ = r.Register(&Tool{
		Name: "broken",
		Execute: func(ctx context.Context, inputs map[string]string) (map[string]any, string, error) {
			return nil, "", errors.New("upstream 503")
		},
	})

	res := r.Dispatch(context.Background(), &models.IntentSchema{Intent: "x", Target: "timeout"}, nil)
	if res.ErrorKind != models.ErrToolTimeout {
		t.Errorf("Deadline errors should map to tool_timeout, got %s", res.ErrorKind)
	}

	res = r.Dispatch(context.Background(), &models.IntentSchema{Intent: "x", Target: "broken"}, nil)
	if res.ErrorKind != models.ErrToolUnavailable {
		t.Errorf("Other failures should map to tool_unavailable, got %s", res.ErrorKind)
	}
}

func TestTurnCache_ReplaysIdenticalCalls(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(echoTool("route"))
	schema := routeSchema()

	cache := NewTurnCache(r)
	inputs := map[string]string{"origin": "Berlin", "destination": "Paris"}

	first := cache.Dispatch(context.Background(), schema, inputs)
	second := cache.Dispatch(context.Background(), schema, inputs)
	if first.Payload["calls"] != 1 || second.Payload["calls"] != 1 {
		t.Error("Identical dispatches within a turn must replay the cached result")
	}

	// Input normalization: case and whitespace do not defeat the cache.
	third := cache.Dispatch(context.Background(), schema, map[string]string{"origin": " berlin ", "destination": "PARIS"})
	if third.Payload["calls"] != 1 {
		t.Error("Normalized-equal inputs must hit the cache")
	}

	changed := cache.Dispatch(context.Background(), schema, map[string]string{"origin": "Berlin", "destination": "Rome"})
	if changed.Payload["calls"] != 2 {
		t.Error("Different inputs must dispatch again")
	}

	// A fresh turn gets a fresh cache.
	next := NewTurnCache(r)
	fresh := next.Dispatch(context.Background(), schema, inputs)
	if fresh.Payload["calls"] != 3 {
		t.Error("Cached results must not survive into the next turn")
	}
}

func TestValidate_SchemaTableCoverage(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(echoTool("route"))

	table, err := models.NewSchemaTable([]*models.IntentSchema{
		routeSchema(),
		{Intent: "ask_knowledge", Target: models.TargetKnowledge},
	})
	if err != nil {
		t.Fatalf("NewSchemaTable failed: %v", err)
	}
	if err := r.Validate(table); err != nil {
		t.Errorf("Table with covered targets should validate: %v", err)
	}

	table, err = models.NewSchemaTable([]*models.IntentSchema{
		{Intent: "ask_weather", Target: "weather"},
	})
	if err != nil {
		t.Fatalf("NewSchemaTable failed: %v", err)
	}
	if err := r.Validate(table); err == nil {
		t.Error("Unregistered target must fail validation")
	}
}
