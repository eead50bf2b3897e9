package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/securelab/backend/internal/config"
	"github.com/securelab/backend/internal/db"
	"github.com/securelab/backend/internal/health"
	"github.com/securelab/backend/internal/logger"
	"github.com/securelab/backend/internal/middleware"
	"github.com/securelab/backend/internal/routes"
	"github.com/securelab/backend/internal/services"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	logger.Initialize(cfg.LogLevel, cfg.LogFile)
	if envErr != nil {
		logger.Warn("No .env file found, using environment variables", nil)
	}

	conn, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	if err := db.AutoMigrate(conn); err != nil {
		logger.Fatal("Failed to migrate database", map[string]interface{}{"error": err.Error()})
	}

	// Assistant pipeline
	snapshotService := services.NewSnapshotService(
		services.NewGormSnapshotSource(conn),
		cfg.Assistant.Limits,
		cfg.Assistant.CacheTTL,
	)
	geminiService := services.NewGeminiService(cfg.Gemini)
	assistantService := services.NewAssistantService(snapshotService, geminiService, cfg.Assistant)
	if !geminiService.Configured() {
		logger.Warn("GEMINI_API_KEY is not set, assistant requests will fail", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var scheduler *services.InsightScheduler
	if cfg.Assistant.Insights.AutoRefresh && geminiService.Configured() {
		scheduler = services.NewInsightScheduler(assistantService, cfg.Assistant.Insights.RefreshInterval)
		if err := scheduler.Start(ctx); err != nil {
			logger.Fatal("Failed to start insight scheduler", map[string]interface{}{"error": err.Error()})
		}
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	r := gin.New()

	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigin))
	r.Use(gin.Recovery())

	r.GET("/health", health.Handler(health.Checks{
		PingDB:            func(ctx context.Context) error { return db.Ping(ctx, conn) },
		ModelConfigured:   geminiService.Configured,
		SnapshotFetchedAt: snapshotService.CachedAt,
	}))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	deps := routes.Dependencies{
		DB:        conn,
		Config:    cfg,
		Snapshot:  snapshotService,
		Assistant: assistantService,
		Model:     geminiService,
	}
	if scheduler != nil {
		deps.Scheduler = scheduler
	}
	routes.SetupRoutes(r, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	logger.Info("Starting SecureLab backend server", map[string]interface{}{
		"port":     cfg.Port,
		"gin_mode": gin.Mode(),
		"env":      cfg.Env,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server gracefully...", nil)

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		logger.Info("Server exited gracefully", nil)
	}
}
