package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"wayfarer/internal/models"
)

// Handler executes one capability. Inputs are the filled slot values keyed by
// slot name. It returns a structured payload plus a one-line summary the
// composer can fall back on.
type Handler func(ctx context.Context, inputs map[string]string) (map[string]any, string, error)

// Tool represents a callable capability with its metadata and handler.
type Tool struct {
	Name        string
	DisplayName string // User-facing name, e.g. "route planner"
	Description string
	Required    []string // Input names the handler cannot run without
	Execute     Handler
}

// Registry manages all available tools.
type Registry struct {
	tools map[string]*Tool
	mutex sync.RWMutex
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a new tool to the registry.
func (r *Registry) Register(tool *Tool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Execute == nil {
		return fmt.Errorf("tool %s must have an Execute function", tool.Name)
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}

	r.tools[tool.Name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.tools)
}

// Validate checks that every intent routed to a capability has a registered
// tool. Run at startup so a schema typo fails the boot, not a user turn.
func (r *Registry) Validate(table *models.SchemaTable) error {
	for _, intent := range table.Intents() {
		schema, _ := table.Get(intent)
		if schema.Target == models.TargetKnowledge {
			continue
		}
		if _, ok := r.Get(schema.Target); !ok {
			return fmt.Errorf("intent %q targets unregistered tool %q", intent, schema.Target)
		}
	}
	return nil
}

// Dispatch runs the capability for a schema with the given slot values and
// normalizes every failure into an error kind. The handler never sees a call
// with missing required inputs; the dialogue layer collects slots first, so a
// gap here is an internal routing bug and is reported as such.
func (r *Registry) Dispatch(ctx context.Context, schema *models.IntentSchema, inputs map[string]string) models.ToolResult {
	tool, exists := r.Get(schema.Target)
	if !exists {
		log.Printf("❌ [TOOLS] Intent %s routed to unknown tool %s", schema.Intent, schema.Target)
		return models.Failure(schema.Target, models.ErrUnknownIntent)
	}

	for _, name := range tool.Required {
		if strings.TrimSpace(inputs[name]) == "" {
			log.Printf("❌ [TOOLS] Tool %s dispatched without required input %s", tool.Name, name)
			return models.Failure(tool.Name, models.ErrIncompleteInput)
		}
	}

	payload, summary, err := tool.Execute(ctx, inputs)
	if err != nil {
		kind := models.ErrToolUnavailable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = models.ErrToolTimeout
		}
		log.Printf("⚠️ [TOOLS] Tool %s failed (%s): %v", tool.Name, kind, err)
		return models.Failure(tool.Name, kind)
	}

	return models.ToolResult{
		Success: true,
		Tool:    tool.Name,
		Payload: payload,
		Summary: summary,
	}
}

// TurnCache deduplicates tool calls within a single turn. It is created per
// turn and discarded with it; nothing a tool returns survives into the next
// turn, so repeated dispatches always see fresh data.
type TurnCache struct {
	registry *Registry
	results  map[string]models.ToolResult
}

// NewTurnCache wraps a registry for one turn's dispatches.
func NewTurnCache(registry *Registry) *TurnCache {
	return &TurnCache{
		registry: registry,
		results:  make(map[string]models.ToolResult),
	}
}

// Dispatch runs the capability, replaying the cached result when the same
// tool is invoked with identical inputs in this turn.
func (c *TurnCache) Dispatch(ctx context.Context, schema *models.IntentSchema, inputs map[string]string) models.ToolResult {
	key := cacheKey(schema.Target, inputs)
	if res, hit := c.results[key]; hit {
		return res
	}
	res := c.registry.Dispatch(ctx, schema, inputs)
	c.results[key] = res
	return res
}

func cacheKey(tool string, inputs map[string]string) string {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(tool)
	for _, name := range names {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strings.ToLower(strings.TrimSpace(inputs[name])))
	}
	return b.String()
}
