package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/scenereel/api/internal/client"
	"github.com/scenereel/api/internal/config"
	"github.com/scenereel/api/internal/handler"
	"github.com/scenereel/api/internal/i18n"
	"github.com/scenereel/api/internal/media"
	"github.com/scenereel/api/internal/middleware"
	"github.com/scenereel/api/internal/model"
	"github.com/scenereel/api/internal/pipeline"
	"github.com/scenereel/api/internal/service"
	"github.com/scenereel/api/internal/store"
	ws "github.com/scenereel/api/internal/websocket"
	"github.com/scenereel/api/internal/worker"
)

func main() {
	// Load configuration. A missing Gemini key is fatal.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Initialize Asynq client and inspector
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	// Initialize validator
	validate := validator.New()

	// Message catalogue
	messages := i18n.NewCatalog(cfg.Server.DefaultLang)

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// External clients
	geminiClient, err := client.NewGeminiClient(ctx, &cfg.Gemini)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer geminiClient.Close()

	veoClient := client.NewVeoClient(&cfg.Gemini)

	// Voice catalog, populated in the background
	voices := newVoiceStack(cfg)
	voices.Start(ctx)
	voiceCatalog, binder, player := voices.catalog, voices.binder, voices.player

	// Run state and media
	runStore := store.NewRedisRunStore(redisClient, cfg.Pipeline.RunTTL)
	mediaStore := media.NewStore()

	orchestrator := pipeline.NewOrchestrator(geminiClient, veoClient, binder, mediaStore)

	// Initialize services
	generationService := service.NewGenerationService(runStore, asynqClient, inspector, mediaStore, messages, cfg.Pipeline.RunTimeout)
	narrationService := service.NewNarrationService(runStore, binder, player)

	// Initialize handlers
	generationHandler := handler.NewGenerationHandler(generationService, validate, messages)
	narrationHandler := handler.NewNarrationHandler(narrationService, messages)
	mediaHandler := handler.NewMediaHandler(mediaStore)
	optionsHandler := handler.NewOptionsHandler(messages, voiceCatalog)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Accept-Language," + middleware.SessionHeader,
		ExposeHeaders: middleware.SessionHeader + ",X-Voice-Id,X-Voice-Name,X-Voice-Fallback",
	}))
	app.Use(middleware.Session())

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"gemini":     cfg.Gemini.APIKey != "",
				"veo":        veoClient.IsConfigured(),
				"elevenlabs": player.Renders(),
				"voices":     voiceCatalog.Populated(),
			},
		})
	})

	// Media handles
	app.Get("/media/:handle", mediaHandler.Get)

	// API routes
	api := app.Group("/api")
	api.Get("/options", optionsHandler.Options)
	api.Get("/voices", optionsHandler.Voices)
	api.Get("/session/run", generationHandler.Current)
	api.Delete("/narration", narrationHandler.Cancel)

	// Run routes
	runs := api.Group("/runs")
	runs.Post("/", rateLimiter.RunLimit(cfg.RateLimit.RunsPerHour), generationHandler.Start)
	runs.Get("/:runId", generationHandler.Get)
	runs.Get("/:runId/preview", generationHandler.Preview)
	runs.Post("/:runId/cancel", generationHandler.Cancel)
	runs.Delete("/:runId", generationHandler.Discard)
	runs.Post("/:runId/clips/:index/narration", rateLimiter.NarrationLimit(cfg.RateLimit.NarrationsPerMin), narrationHandler.Speak)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/runs/:runId", websocket.New(func(c *websocket.Conn) {
		runID := c.Params("runId")

		var snapshot []byte
		if run, err := generationService.GetRun(context.Background(), runID); err == nil {
			snapshot, _ = json.Marshal(model.WSCompleteMessage{Type: model.WSMessageTypeSnapshot, RunID: runID, Result: *run})
		}
		hub.HandleConnection(c, runID, snapshot)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, runStore, orchestrator, messages, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// startWorkerServer runs generation tasks in this process. Media handles live
// in process memory, so the worker must share the process with the API.
func startWorkerServer(
	cfg *config.Config,
	runStore store.RunStore,
	orchestrator *pipeline.Orchestrator,
	messages *i18n.Catalog,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Pipeline.Concurrency,
			Queues: map[string]int{
				service.QueueGeneration: 1,
			},
			LogLevel: asynqLogLevel,
		},
	)

	generationWorker := worker.NewGenerationWorker(runStore, orchestrator, hub, messages)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeGeneration, generationWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
