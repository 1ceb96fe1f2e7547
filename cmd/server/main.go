package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"propintel/internal/config"
	"propintel/internal/database"
	"propintel/internal/handlers"
	"propintel/internal/health"
	"propintel/internal/logging"
	"propintel/internal/middleware"
	"propintel/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Brisbane Property Intelligence Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load the immutable configuration snapshot
	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Env: %s)", cfg.Port, cfg.Environment)

	// Validate configuration. Issues are reported, never fatal: the server
	// starts degraded and the status endpoint surfaces what is wrong.
	report := config.Validate(cfg)
	if !report.OK {
		for _, issue := range report.Issues {
			log.Printf("⚠️  [CONFIG] %s", issue)
		}
		log.Printf("⚠️  Starting with %d configuration issue(s)", len(report.Issues))
	} else {
		log.Println("✅ Configuration validated")
	}
	log.Printf("📋 Usable providers: %s", strings.Join(config.EnabledServices(cfg), ", "))

	// SQLite query history (optional - analysis works without it)
	var db *database.DB
	if d, err := database.New(cfg.DatabasePath); err != nil {
		log.Printf("⚠️ Failed to open database: %v (history disabled)", err)
	} else if err := d.Initialize(); err != nil {
		log.Printf("⚠️ Failed to initialize database: %v (history disabled)", err)
		d.Close()
	} else {
		db = d
		defer db.Close()
	}

	// Redis answer cache (optional)
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		var err error
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (answer caching disabled)", err)
			redisService = nil
		} else {
			defer redisService.Close()
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - answer caching disabled")
	}

	// Prometheus metrics
	services.InitMetrics(cfg)

	// Provider health tracking with active check strategies
	healthService := health.NewService(providerGetter(cfg), 3, 15*time.Minute)
	healthService.RegisterStrategy(&health.TextHealthCheck{})
	healthService.RegisterStrategy(&health.ImageHealthCheck{})

	for i, name := range config.EnabledTextProviders(cfg) {
		// Earlier in the dispatch order = higher priority
		healthService.RegisterProvider(health.CapabilityText, name, len(cfg.TextProviders())-i)
	}
	if cfg.Stability.Usable() {
		healthService.RegisterProvider(health.CapabilityImage, config.ProviderStability, 1)
	}

	// Core services
	rssService := services.NewRSSService(cfg)
	llmService := services.NewLLMService(cfg, healthService)
	stabilityService := services.NewStabilityService(cfg, healthService)
	propertyService := services.NewPropertyService(cfg, llmService, rssService, db, redisService)
	analyticsService := services.NewAnalyticsService(cfg, db, rssService)

	// Background jobs: feed refresh and provider health sweeps
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	schedulerService, err := services.NewSchedulerService(rssService, healthService)
	if err != nil {
		log.Printf("⚠️ Failed to create scheduler: %v (background jobs disabled)", err)
	} else if err := schedulerService.Start(ctx); err != nil {
		log.Printf("⚠️ Failed to start scheduler: %v (background jobs disabled)", err)
		schedulerService = nil
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Brisbane Property Intelligence v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 180 * time.Second, // analysis runs two LLM passes
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("propintel")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept",
		AllowCredentials: false,
	}))

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Analyze=%d/min, Admin=%d/min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.AnalyzeMax, rateLimitConfig.AdminMax)

	// Handlers
	instanceID := ""
	if schedulerService != nil {
		instanceID = schedulerService.InstanceID()
	}
	healthHandler := handlers.NewHealthHandler(cfg, db, redisService, rssService, healthService, instanceID)
	configHandler := handlers.NewConfigHandler(cfg, report, llmService, stabilityService)
	propertyHandler := handlers.NewPropertyHandler(propertyService, analyticsService, db)
	rssHandler := handlers.NewRSSHandler(rssService)
	imageHandler := handlers.NewImageHandler(stabilityService)

	// Routes
	app.Get("/", handlers.Index)
	app.Get("/health", healthHandler.Basic)
	app.Get("/health/deep", healthHandler.Deep)
	app.Get("/debug/rss", rssHandler.Debug)
	app.Post("/debug/rss/refresh", middleware.AdminRateLimiter(rateLimitConfig), rssHandler.Refresh)

	api := app.Group("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))
	api.Get("/config/status", configHandler.Status)

	property := api.Group("/property")
	property.Get("/questions", propertyHandler.Questions)
	property.Post("/analyze", middleware.AnalyzeRateLimiter(rateLimitConfig), propertyHandler.Analyze)
	property.Get("/history", propertyHandler.History)
	property.Get("/stats", propertyHandler.Stats)
	property.Post("/reset", middleware.AdminRateLimiter(rateLimitConfig), propertyHandler.Reset)
	property.Post("/visualize", middleware.AnalyzeRateLimiter(rateLimitConfig), imageHandler.Visualize)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if schedulerService != nil {
			if err := schedulerService.Stop(); err != nil {
				log.Printf("⚠️ Error stopping scheduler: %v", err)
			}
		}
		cancel()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	log.Printf("🌐 Server listening on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// providerGetter adapts the config snapshot to the health package's lookup
// interface without making health depend on config.
func providerGetter(cfg *config.Config) health.ProviderGetter {
	return func(name string) (*health.ProviderInfo, error) {
		var spec config.ProviderSpec
		switch name {
		case config.ProviderClaude:
			spec = cfg.Claude
		case config.ProviderGemini:
			spec = cfg.Gemini
		case config.ProviderStability:
			spec = cfg.Stability
		default:
			return nil, fmt.Errorf("unknown provider: %s", name)
		}

		return &health.ProviderInfo{
			Name:    spec.Name,
			APIKey:  spec.APIKey,
			Enabled: spec.Enabled,
			Models:  spec.Models,
		}, nil
	}
}
