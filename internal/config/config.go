package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string

	// External collaborators
	NLUURL           string
	EmbedURL         string
	EmbedModel       string
	LLMURL           string
	LLMModel         string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	RedisURL         string
	MongoURI         string

	// Provider credentials
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	ClimatiqAPIKey     string
	ClimatiqBaseURL    string

	// Knowledge base + intent table
	KnowledgeBasePath string
	IntentSchemaPath  string

	// Resolver policy
	ResolverMargin        float64
	ResolverMaxCandidates int

	// Retrieval policy
	RAGTopK          int
	RAGMinSimilarity float64
	RAGContextBudget int

	// Dialogue policy
	MaxClarifyAttempts int
	BackgroundIntents  []string
	ConversationTTL    time.Duration

	// Timeouts (every external call is bounded)
	ToolTimeout     time.Duration
	NLUTimeout      time.Duration
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration

	// Rate limiting
	RateLimitPerMinute int
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8086"),
		Environment: getEnv("ENVIRONMENT", "development"),

		NLUURL:           getEnv("NLU_URL", "http://localhost:5005"),
		EmbedURL:         getEnv("EMBED_URL", "http://localhost:11434"),
		EmbedModel:       getEnv("EMBED_MODEL", "nomic-embed-text"),
		LLMURL:           getEnv("LLM_URL", "http://localhost:11434"),
		LLMModel:         getEnv("LLM_MODEL", "llama3.1"),
		QdrantURL:        getEnv("QDRANT_URL", ""),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "travel_knowledge"),
		RedisURL:         getEnv("REDIS_URL", ""),
		MongoURI:         getEnv("MONGODB_URI", ""),

		OpenWeatherAPIKey:  getEnv("OPENWEATHER_API_KEY", ""),
		OpenWeatherBaseURL: getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
		ClimatiqAPIKey:     getEnv("CLIMATIQ_API_KEY", ""),
		ClimatiqBaseURL:    getEnv("CLIMATIQ_BASE_URL", "https://api.climatiq.io"),

		KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", ""),
		IntentSchemaPath:  getEnv("INTENT_SCHEMA_PATH", "intents.yaml"),

		ResolverMargin:        getFloatEnv("RESOLVER_MARGIN", 0.2),
		ResolverMaxCandidates: getIntEnv("RESOLVER_MAX_CANDIDATES", 3),

		RAGTopK:          getIntEnv("RAG_TOP_K", 5),
		RAGMinSimilarity: getFloatEnv("RAG_MIN_SIMILARITY", 0.7),
		RAGContextBudget: getIntEnv("RAG_CONTEXT_BUDGET", 2000),

		MaxClarifyAttempts: getIntEnv("DIALOGUE_MAX_CLARIFY", 2),
		BackgroundIntents:  getListEnv("DIALOGUE_BACKGROUND_INTENTS", "ask_knowledge"),
		ConversationTTL:    getDurationEnv("CONVERSATION_IDLE_TTL", 30*time.Minute),

		ToolTimeout:     getDurationEnv("TOOL_TIMEOUT", 10*time.Second),
		NLUTimeout:      getDurationEnv("NLU_TIMEOUT", 10*time.Second),
		EmbedTimeout:    getDurationEnv("EMBED_TIMEOUT", 15*time.Second),
		GenerateTimeout: getDurationEnv("GENERATE_TIMEOUT", 60*time.Second),

		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 30),
	}
}

// Validate checks invariants that must hold before the server starts.
// Policy values out of range are configuration mistakes, not runtime
// conditions, so startup fails instead of limping along.
func (c *Config) Validate() error {
	if c.ResolverMargin < 0 || c.ResolverMargin > 1 {
		return fmt.Errorf("RESOLVER_MARGIN must be within [0,1], got %v", c.ResolverMargin)
	}
	if c.ResolverMaxCandidates < 2 {
		return fmt.Errorf("RESOLVER_MAX_CANDIDATES must be at least 2, got %d", c.ResolverMaxCandidates)
	}
	if c.RAGTopK < 1 {
		return fmt.Errorf("RAG_TOP_K must be positive, got %d", c.RAGTopK)
	}
	if c.RAGMinSimilarity < 0 || c.RAGMinSimilarity > 1 {
		return fmt.Errorf("RAG_MIN_SIMILARITY must be within [0,1], got %v", c.RAGMinSimilarity)
	}
	if c.RAGContextBudget < 1 {
		return fmt.Errorf("RAG_CONTEXT_BUDGET must be positive, got %d", c.RAGContextBudget)
	}
	if c.MaxClarifyAttempts < 1 {
		return fmt.Errorf("DIALOGUE_MAX_CLARIFY must be at least 1, got %d", c.MaxClarifyAttempts)
	}
	// Weather and routing both geocode through OpenWeatherMap; without a
	// key every dispatch of those tools would fail at runtime. Climatiq is
	// not required, the emissions tool has a local factor fallback.
	if c.OpenWeatherAPIKey == "" {
		return fmt.Errorf("OPENWEATHER_API_KEY is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getListEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
