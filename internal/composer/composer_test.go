package composer

import (
	"strings"
	"testing"

	"wayfarer/internal/models"
)

func newComposer() *Composer {
	return New(map[string]string{
		"weather": "destination weather",
		"route":   "route planner",
	})
}

func TestAskSlot_UsesSchemaPrompt(t *testing.T) {
	c := newComposer()

	got := c.AskSlot(models.SlotDef{Name: "destination", Type: "place", Prompt: "Where would you like to go?"})
	if got != "Where would you like to go?" {
		t.Errorf("Expected the schema prompt verbatim, got %q", got)
	}

	got = c.AskSlot(models.SlotDef{Name: "travel_mode", Type: "mode"})
	if !strings.Contains(got, "travel mode") {
		t.Errorf("Fallback prompt should name the slot readably, got %q", got)
	}
}

func TestClarify_NumbersCandidatesWithRegions(t *testing.T) {
	c := newComposer()
	got := c.Clarify("london", []models.Candidate{
		{ID: "gb", Label: "London, UK", Region: "England"},
		{ID: "ca", Label: "London", Region: "Ontario"},
	})

	if !strings.Contains(got, `"london"`) {
		t.Errorf("Clarification should quote the user's words, got %q", got)
	}
	if !strings.Contains(got, "1. London, UK (England)") || !strings.Contains(got, "2. London (Ontario)") {
		t.Errorf("Candidates should be numbered with their regions, got %q", got)
	}
}

func TestToolFailure_NamesCapabilityNotInternals(t *testing.T) {
	c := newComposer()

	got := c.ToolFailure(models.Failure("weather", models.ErrToolTimeout))
	if !strings.Contains(got, "destination weather") || !strings.Contains(got, "too long") {
		t.Errorf("Timeout message should name the capability and suggest retrying, got %q", got)
	}

	got = c.ToolFailure(models.Failure("route", models.ErrToolUnavailable))
	if !strings.Contains(got, "route planner") {
		t.Errorf("Unavailable message should name the capability, got %q", got)
	}
	if strings.Contains(got, "503") || strings.Contains(got, "error") {
		t.Errorf("Failure message must not leak internals, got %q", got)
	}

	// Internal fault kinds degrade to a plain apology.
	got = c.ToolFailure(models.Failure("route", models.ErrIncompleteInput))
	if got != c.Apology() {
		t.Errorf("Internal faults should render the generic apology, got %q", got)
	}
}

func TestRetrievalAnswer_DeflectsUngrounded(t *testing.T) {
	c := newComposer()

	got := c.RetrievalAnswer(&models.RetrievalResult{Grounded: true, Answer: "Night trains are great."})
	if got != "Night trains are great." {
		t.Errorf("Grounded answers pass through, got %q", got)
	}

	got = c.RetrievalAnswer(&models.RetrievalResult{ErrorKind: models.ErrNoRelevantContext})
	if !strings.Contains(got, "narrow it down") {
		t.Errorf("No-context deflection should ask to narrow the question, got %q", got)
	}

	got = c.RetrievalAnswer(&models.RetrievalResult{ErrorKind: models.ErrEmptyIndex})
	if !strings.Contains(got, "knowledge base") {
		t.Errorf("Empty-index deflection should explain the gap, got %q", got)
	}
}

func TestToolSuccess_WeatherIncludesAdvice(t *testing.T) {
	c := newComposer()
	res := models.ToolResult{
		Success: true,
		Tool:    "weather",
		Summary: "Lisbon: 31°C, clear sky",
		Payload: map[string]any{
			"advice":   []string{"Pack light clothing and stay hydrated"},
			"forecast": "next 24h between 24°C and 33°C",
		},
	}

	messages := c.ToolSuccess(res)
	if len(messages) != 3 {
		t.Fatalf("Expected summary, forecast and advice, got %d messages", len(messages))
	}
	if messages[0] != res.Summary {
		t.Errorf("First message should be the summary, got %q", messages[0])
	}
	if !strings.Contains(messages[1], "next 24h") || !strings.Contains(messages[2], "hydrated") {
		t.Errorf("Forecast and advice should follow, got %v", messages[1:])
	}
}
