package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		ResolverMargin:        0.2,
		ResolverMaxCandidates: 3,
		RAGTopK:               5,
		RAGMinSimilarity:      0.7,
		RAGContextBudget:      2000,
		MaxClarifyAttempts:    2,
		OpenWeatherAPIKey:     "test-key",
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"margin above 1", func(c *Config) { c.ResolverMargin = 1.5 }},
		{"negative margin", func(c *Config) { c.ResolverMargin = -0.1 }},
		{"single clarification candidate", func(c *Config) { c.ResolverMaxCandidates = 1 }},
		{"zero top-k", func(c *Config) { c.RAGTopK = 0 }},
		{"similarity above 1", func(c *Config) { c.RAGMinSimilarity = 1.2 }},
		{"zero context budget", func(c *Config) { c.RAGContextBudget = 0 }},
		{"zero clarify attempts", func(c *Config) { c.MaxClarifyAttempts = 0 }},
		{"missing weather key", func(c *Config) { c.OpenWeatherAPIKey = "" }},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.ResolverMargin != 0.2 || cfg.ResolverMaxCandidates != 3 {
		t.Errorf("Unexpected resolver defaults: %v / %d", cfg.ResolverMargin, cfg.ResolverMaxCandidates)
	}
	if cfg.ConversationTTL != 30*time.Minute {
		t.Errorf("Expected 30m idle TTL, got %v", cfg.ConversationTTL)
	}
	if len(cfg.BackgroundIntents) != 1 || cfg.BackgroundIntents[0] != "ask_knowledge" {
		t.Errorf("Expected ask_knowledge background default, got %v", cfg.BackgroundIntents)
	}
}
