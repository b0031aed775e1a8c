package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TargetKnowledge routes an intent to the retrieval pipeline instead of a
// capability handler.
const TargetKnowledge = "knowledge"

// SlotDef declares one slot an intent collects: its name, the entity type
// that may fill it, and the question to ask when it is missing.
type SlotDef struct {
	Name   string `yaml:"name" json:"name"`
	Type   string `yaml:"type" json:"type"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// IntentSchema is the static mapping from one intent label to its slots and
// target capability. Every intent routed by the dispatcher has exactly one
// schema entry; the table is validated at startup, never probed at runtime.
type IntentSchema struct {
	Intent   string    `yaml:"intent" json:"intent"`
	Target   string    `yaml:"target" json:"target"`
	Required []SlotDef `yaml:"required" json:"required"`
	Optional []SlotDef `yaml:"optional" json:"optional"`
}

// Slots returns required then optional slot definitions, in schema order.
func (s *IntentSchema) Slots() []SlotDef {
	out := make([]SlotDef, 0, len(s.Required)+len(s.Optional))
	out = append(out, s.Required...)
	return append(out, s.Optional...)
}

// SlotNamed returns the slot definition with the given name, if any.
func (s *IntentSchema) SlotNamed(name string) (SlotDef, bool) {
	for _, d := range s.Slots() {
		if d.Name == name {
			return d, true
		}
	}
	return SlotDef{}, false
}

// SchemaTable holds all intent schemas, keyed by intent label.
type SchemaTable struct {
	schemas map[string]*IntentSchema
	order   []string
}

type schemaFile struct {
	Intents []*IntentSchema `yaml:"intents"`
}

// LoadSchemaTable reads and validates the intent schema table from a YAML
// file. A table that fails validation aborts startup; dispatching against
// an unvalidated table is how string-based routing bugs are born.
func LoadSchemaTable(path string) (*SchemaTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent schema file: %w", err)
	}

	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse intent schema YAML: %w", err)
	}

	return NewSchemaTable(file.Intents)
}

// NewSchemaTable builds and validates a table from schema entries.
func NewSchemaTable(entries []*IntentSchema) (*SchemaTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("intent schema table is empty")
	}

	t := &SchemaTable{schemas: make(map[string]*IntentSchema, len(entries))}
	for _, s := range entries {
		if s.Intent == "" {
			return nil, fmt.Errorf("intent schema with empty intent label")
		}
		if s.Target == "" {
			return nil, fmt.Errorf("intent %q has no target", s.Intent)
		}
		if _, dup := t.schemas[s.Intent]; dup {
			return nil, fmt.Errorf("duplicate schema entry for intent %q", s.Intent)
		}
		seen := make(map[string]bool)
		for _, d := range s.Slots() {
			if d.Name == "" || d.Type == "" {
				return nil, fmt.Errorf("intent %q declares a slot without name or type", s.Intent)
			}
			if seen[d.Name] {
				return nil, fmt.Errorf("intent %q declares slot %q twice", s.Intent, d.Name)
			}
			seen[d.Name] = true
		}
		t.schemas[s.Intent] = s
		t.order = append(t.order, s.Intent)
	}
	return t, nil
}

// Get returns the schema for an intent label.
func (t *SchemaTable) Get(intent string) (*IntentSchema, bool) {
	s, ok := t.schemas[intent]
	return s, ok
}

// Intents returns all intent labels in declaration order.
func (t *SchemaTable) Intents() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
