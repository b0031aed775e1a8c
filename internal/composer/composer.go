package composer

import (
	"fmt"
	"strings"

	"wayfarer/internal/models"
)

// Composer renders dialogue outcomes into user-facing messages. It is pure
// string assembly: no I/O, no state, so every phrasing is unit-testable.
type Composer struct {
	displayNames map[string]string
}

// New creates a composer. displayNames maps tool names to the user-facing
// capability names used in failure messages.
func New(displayNames map[string]string) *Composer {
	if displayNames == nil {
		displayNames = make(map[string]string)
	}
	return &Composer{displayNames: displayNames}
}

// AskSlot asks for a missing slot using its schema prompt, with a generic
// fallback when the schema declares none.
func (c *Composer) AskSlot(def models.SlotDef) string {
	if def.Prompt != "" {
		return def.Prompt
	}
	return fmt.Sprintf("Could you tell me the %s?", strings.ReplaceAll(def.Name, "_", " "))
}

// Clarify asks the user to pick between candidate resolutions of an
// ambiguous mention. Candidates are numbered so a bare "2" is a valid reply.
func (c *Composer) Clarify(surface string, candidates []models.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I found more than one place called %q. Which one did you mean?", surface)
	for i, cand := range candidates {
		label := cand.Label
		if cand.Region != "" && !strings.Contains(label, cand.Region) {
			label = fmt.Sprintf("%s (%s)", label, cand.Region)
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, label)
	}
	return b.String()
}

// ClarificationExhausted gives up on an ambiguous slot after repeated
// failed clarification attempts and invites a restart.
func (c *Composer) ClarificationExhausted(slotName string) string {
	return fmt.Sprintf("I still couldn't pin down the %s. Let's start over: could you rephrase your request with the full place name?",
		strings.ReplaceAll(slotName, "_", " "))
}

// ToolFailure explains a failed capability without leaking internals. The
// message names what was attempted and whether retrying might help.
func (c *Composer) ToolFailure(result models.ToolResult) string {
	name := c.displayNames[result.Tool]
	if name == "" {
		name = "that"
	}

	switch result.ErrorKind {
	case models.ErrToolTimeout:
		return fmt.Sprintf("The %s service is taking too long to respond. Please try again in a moment.", name)
	case models.ErrToolUnavailable:
		return fmt.Sprintf("I couldn't reach the %s service right now. Please try again later.", name)
	default:
		// Internal kinds (unknown_intent, incomplete_input) are bugs,
		// not user problems; apologize without detail.
		return c.Apology()
	}
}

// ToolSuccess renders a successful capability result. Known payloads get a
// tailored rendering; anything else falls back to the handler's summary.
func (c *Composer) ToolSuccess(result models.ToolResult) []string {
	switch result.Tool {
	case "weather":
		return c.renderWeather(result)
	case "route":
		return c.renderRoute(result)
	case "emissions":
		return c.renderEmissions(result)
	default:
		return []string{result.Summary}
	}
}

func (c *Composer) renderWeather(result models.ToolResult) []string {
	messages := []string{result.Summary}

	if forecast, ok := result.Payload["forecast"].(string); ok && forecast != "" {
		messages = append(messages, "Looking ahead: "+forecast+".")
	}
	if advice, ok := result.Payload["advice"].([]string); ok && len(advice) > 0 {
		messages = append(messages, strings.Join(advice, ". ")+".")
	}
	return messages
}

func (c *Composer) renderRoute(result models.ToolResult) []string {
	return []string{result.Summary}
}

func (c *Composer) renderEmissions(result models.ToolResult) []string {
	messages := []string{result.Summary}
	if cost, ok := result.Payload["offset_cost_usd"].(float64); ok && cost > 0 {
		messages = append(messages, fmt.Sprintf("Offsetting this trip would cost about $%.2f.", cost))
	}
	return messages
}

// RetrievalAnswer renders the retrieval pipeline's outcome. Ungrounded
// results deflect instead of answering; the engine never improvises.
func (c *Composer) RetrievalAnswer(result *models.RetrievalResult) string {
	if result.Grounded {
		return result.Answer
	}
	switch result.ErrorKind {
	case models.ErrEmptyIndex:
		return "My travel knowledge base isn't loaded yet, so I can't answer that one. Ask me about routes, weather or emissions in the meantime."
	case models.ErrNoRelevantContext:
		return "I don't have reliable information on that. Could you narrow it down, maybe to a specific destination or travel topic?"
	default:
		return c.Apology()
	}
}

// Apology is the generic recovery message for internal faults.
func (c *Composer) Apology() string {
	return "Sorry, something went wrong on my end. Could you try that again?"
}
