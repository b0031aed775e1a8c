package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wayfarer/internal/composer"
	"wayfarer/internal/config"
	"wayfarer/internal/handlers"
	"wayfarer/internal/jobs"
	"wayfarer/internal/logging"
	"wayfarer/internal/middleware"
	"wayfarer/internal/models"
	"wayfarer/internal/nlu"
	"wayfarer/internal/rag"
	"wayfarer/internal/resolver"
	"wayfarer/internal/services"
	"wayfarer/internal/tools"
)

func main() {
	logging.Init()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	schemas, err := models.LoadSchemaTable(cfg.IntentSchemaPath)
	if err != nil {
		log.Fatalf("❌ Failed to load intent schemas: %v", err)
	}
	log.Printf("✅ Loaded %d intent schemas from %s", len(schemas.Intents()), cfg.IntentSchemaPath)

	index := buildIndex(cfg)

	if cfg.KnowledgeBasePath != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		count, err := rag.LoadKnowledgeBase(ctx, index, cfg.KnowledgeBasePath)
		cancel()
		if err != nil {
			log.Fatalf("❌ Failed to load knowledge base: %v", err)
		}
		log.Printf("✅ Indexed %d knowledge chunks from %s", count, cfg.KnowledgeBasePath)
	}

	pipeline := rag.NewPipeline(
		rag.NewHTTPEmbedder(cfg.EmbedURL, cfg.EmbedModel, cfg.EmbedTimeout),
		index,
		rag.NewHTTPGenerator(cfg.LLMURL, cfg.LLMModel, cfg.GenerateTimeout),
		cfg.RAGTopK,
		cfg.RAGMinSimilarity,
		cfg.RAGContextBudget,
	)

	registry := buildRegistry(cfg)
	if err := registry.Validate(schemas); err != nil {
		log.Fatalf("❌ Intent schema validation failed: %v", err)
	}
	log.Printf("✅ Registered %d tools", registry.Count())

	// Redis is optional; without it chat rate limiting degrades to the
	// per-IP limiter only.
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Redis configured but unreachable: %v", err)
		}
		defer redisService.Close()
	}

	// Mongo is optional; without it transcripts are simply not archived.
	var mongoClient *mongo.Client
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoClient, err = mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		cancel()
		if err != nil {
			log.Fatalf("❌ MongoDB configured but unreachable: %v", err)
		}
		defer func() {
			_ = mongoClient.Disconnect(context.Background())
		}()
		log.Println("✅ MongoDB connection established")
	}

	conversations := services.NewConversationService(cfg.ConversationTTL)
	transcripts := services.NewTranscriptService(mongoClient, "wayfarer")

	dialogueService := services.NewDialogueService(services.DialogueDeps{
		Conversations:     conversations,
		Classifier:        nlu.NewClient(cfg.NLUURL, cfg.NLUTimeout),
		Resolver:          resolver.New(cfg.ResolverMargin, cfg.ResolverMaxCandidates),
		Registry:          registry,
		Pipeline:          pipeline,
		Composer:          composer.New(displayNames(registry)),
		Schemas:           schemas,
		Transcripts:       transcripts,
		MaxClarify:        cfg.MaxClarifyAttempts,
		TurnTimeout:       cfg.GenerateTimeout + cfg.NLUTimeout,
		BackgroundIntents: cfg.BackgroundIntents,
	})

	app := fiber.New(fiber.Config{
		AppName:      "Wayfarer",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	})

	app.Use(recover.New())
	if cfg.Environment != "production" {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	prometheus := fiberprometheus.New("wayfarer")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	app.Use("/api", middleware.GlobalRateLimiter(200, time.Minute))

	chatHandler := handlers.NewChatHandler(dialogueService)
	conversationHandler := handlers.NewConversationHandler(conversations)
	knowledgeHandler := handlers.NewKnowledgeHandler(index)
	healthHandler := handlers.NewHealthHandler(conversations, index, redisService, transcripts)

	app.Get("/health", healthHandler.Handle)
	app.Post("/api/chat", middleware.SessionRateLimiter(redisService, cfg.RateLimitPerMinute), chatHandler.Handle)
	app.Post("/api/conversations/:id/reset", conversationHandler.Reset)
	app.Post("/api/knowledge", knowledgeHandler.Upsert)
	app.Get("/api/knowledge/stats", knowledgeHandler.Stats)

	scheduler := jobs.NewScheduler()
	scheduler.Register("conversation-cleanup", jobs.NewConversationCleanupJob(conversations, 10*time.Minute))
	scheduler.Register("transcript-retention", jobs.NewTranscriptRetentionJob(transcripts, 30*24*time.Hour, 24*time.Hour))
	scheduler.Start()

	go func() {
		log.Printf("🚀 Wayfarer listening on :%s (%s)", cfg.Port, cfg.Environment)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	scheduler.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("⚠️  Forced shutdown: %v", err)
	}
	if closer, ok := index.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	log.Println("✅ Server stopped")
}

// buildIndex selects the vector index driver: Qdrant when configured,
// otherwise the in-process index.
func buildIndex(cfg *config.Config) rag.Index {
	if cfg.QdrantURL == "" {
		log.Println("✅ Using in-memory vector index")
		return rag.NewMemoryIndex()
	}

	index, err := rag.NewQdrantIndex(rag.QdrantConfig{
		URL:            cfg.QdrantURL,
		CollectionName: cfg.QdrantCollection,
		APIKey:         cfg.QdrantAPIKey,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to Qdrant: %v", err)
	}
	log.Printf("✅ Connected to Qdrant collection %s", cfg.QdrantCollection)
	return index
}

func buildRegistry(cfg *config.Config) *tools.Registry {
	geocoder := tools.NewOWMGeocoder(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.ToolTimeout)

	registry := tools.NewRegistry()
	mustRegister(registry, tools.NewWeatherTool(geocoder, cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.ToolTimeout))
	mustRegister(registry, tools.NewRouteTool(geocoder))
	mustRegister(registry, tools.NewEmissionsTool(cfg.ClimatiqAPIKey, cfg.ClimatiqBaseURL, cfg.ToolTimeout))
	return registry
}

func mustRegister(registry *tools.Registry, tool *tools.Tool) {
	if err := registry.Register(tool); err != nil {
		log.Fatalf("❌ Failed to register tool: %v", err)
	}
}

func displayNames(registry *tools.Registry) map[string]string {
	names := make(map[string]string)
	for _, name := range []string{"weather", "route", "emissions"} {
		if tool, ok := registry.Get(name); ok {
			names[name] = tool.DisplayName
		}
	}
	return names
}
