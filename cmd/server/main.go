package main

import (
	"context"
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

	"github.com/keylia/api/internal/breaker"
	"github.com/keylia/api/internal/client"
	"github.com/keylia/api/internal/compositor"
	"github.com/keylia/api/internal/config"
	"github.com/keylia/api/internal/generator"
	"github.com/keylia/api/internal/handler"
	"github.com/keylia/api/internal/idempotency"
	"github.com/keylia/api/internal/middleware"
	"github.com/keylia/api/internal/model"
	"github.com/keylia/api/internal/service"
	"github.com/keylia/api/internal/store"
	ws "github.com/keylia/api/internal/websocket"
	"github.com/keylia/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// One registry shared by the API process and the embedded worker so
	// breaker state is visible on the admin endpoint.
	breakers := breaker.NewRegistry()

	// Initialize external clients
	anthropicClient := client.NewAnthropicClient(&cfg.Anthropic)
	elevenLabsClient := client.NewElevenLabsClient(&cfg.ElevenLabs)
	falClient := client.NewFalClient(&cfg.Fal)

	// Initialize R2 client (optional - uploads fail until configured)
	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		var err error
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		}
	} else {
		log.Println("Info: R2 storage not configured")
	}
	var storage client.StorageClient
	if r2Client != nil {
		storage = r2Client
	}

	// Initialize stores
	jobStore := store.NewProgressStore(redisClient)
	projectStore := store.NewProjectStore(redisClient)
	deadLetterStore := store.NewDeadLetterStore(redisClient)
	guard := idempotency.NewGuard(redisClient)

	// Initialize pipeline components
	scriptGen := generator.NewScriptGenerator(anthropicClient, breakers)
	voiceoverGen := generator.NewVoiceoverGenerator(elevenLabsClient, breakers)
	clipGen := generator.NewSceneClipGenerator(falClient, breakers, time.Duration(cfg.Pipeline.ClipTimeoutSecs)*time.Second)
	comp := compositor.New(&cfg.FFmpeg)

	// Initialize services
	tourService := service.NewTourService(jobStore, projectStore, guard, asynqClient, elevenLabsClient, scriptGen)

	// Initialize handlers
	tourHandler := handler.NewTourVideoHandler(tourService, validate)
	adminHandler := handler.NewAdminHandler(deadLetterStore, breakers, asynqClient)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, cfg.JWT.Expiration)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Idempotency-Key",
	}))

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
				"anthropic":  anthropicClient.IsConfigured(),
				"elevenlabs": elevenLabsClient.IsConfigured(),
				"fal":        falClient.IsConfigured(),
				"r2":         r2Client != nil,
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Tour video routes
	tours := api.Group("/tour-videos")
	tours.Post("/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), tourHandler.Generate)
	tours.Get("/voices", tourHandler.Voices)
	tours.Get("/:projectId/progress", tourHandler.Progress)
	tours.Get("/:projectId/preview", tourHandler.Preview)
	tours.Post("/:projectId/scenes/:sceneId/regenerate", rateLimiter.RegenerateLimit(cfg.RateLimit.RegeneratePerHour), tourHandler.RegenerateScene)
	tours.Post("/:projectId/scenes/:sceneId/regenerate-text", rateLimiter.RegenerateLimit(cfg.RateLimit.RegeneratePerHour), tourHandler.RegenerateSceneText)
	tours.Get("/jobs/:jobId", tourHandler.JobStatus)
	tours.Post("/jobs/:jobId/cancel", tourHandler.Cancel)

	// Admin routes
	admin := api.Group("/admin", authMiddleware.RequireAdmin())
	admin.Get("/dead-letters", adminHandler.ListDeadLetters)
	admin.Get("/dead-letters/:taskId", adminHandler.GetDeadLetter)
	admin.Post("/dead-letters/:taskId/replay", adminHandler.ReplayDeadLetter)
	admin.Delete("/dead-letters", adminHandler.ClearDeadLetters)
	admin.Get("/circuit-breakers", adminHandler.CircuitBreakers)
	admin.Post("/circuit-breakers/:service/reset", adminHandler.ResetCircuitBreaker)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	tourWorker := worker.NewTourWorker(
		jobStore, projectStore,
		scriptGen, voiceoverGen, clipGen,
		comp, storage, hub,
		cfg.Pipeline.MaxConcurrentClips, cfg.Pipeline.WorkerID,
	)
	sceneWorker := worker.NewSceneWorker(projectStore, clipGen)
	go startWorkerServer(cfg, deadLetterStore, tourWorker, sceneWorker)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
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

func startWorkerServer(
	cfg *config.Config,
	deadLetters *store.DeadLetterStore,
	tourWorker *worker.TourWorker,
	sceneWorker *worker.SceneWorker,
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
			Concurrency: 10,
			Queues: map[string]int{
				service.QueueVideo: 6,
				service.QueueAI:    4,
			},
			LogLevel:     asynqLogLevel,
			ErrorHandler: deadLetterHandler(deadLetters),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeTourGenerate, tourWorker.ProcessTask)
	mux.HandleFunc(service.TaskTypeSceneRegenerate, sceneWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

// deadLetterHandler records tasks that exhausted their retries so operators
// can inspect and replay them.
func deadLetterHandler(deadLetters *store.DeadLetterStore) asynq.ErrorHandlerFunc {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retryCount, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retryCount < maxRetry {
			return
		}

		taskID, _ := asynq.GetTaskID(ctx)
		queue, _ := asynq.GetQueueName(ctx)

		deadLetters.Record(ctx, &model.DeadLetterRecord{
			TaskID:           taskID,
			TaskName:         task.Type(),
			Queue:            queue,
			ExceptionType:    "TaskFailed",
			ExceptionMessage: err.Error(),
			Payload:          task.Payload(),
			FailedAt:         time.Now(),
		})
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
