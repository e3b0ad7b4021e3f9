package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/captioner/internal/config"
	"github.com/therealutkarshpriyadarshi/captioner/internal/events"
	"github.com/therealutkarshpriyadarshi/captioner/internal/jobstore"
	"github.com/therealutkarshpriyadarshi/captioner/internal/logging"
	"github.com/therealutkarshpriyadarshi/captioner/internal/metrics"
	"github.com/therealutkarshpriyadarshi/captioner/internal/middleware"
	"github.com/therealutkarshpriyadarshi/captioner/internal/processor"
	"github.com/therealutkarshpriyadarshi/captioner/internal/runner"
	"github.com/therealutkarshpriyadarshi/captioner/internal/storage"
	"github.com/therealutkarshpriyadarshi/captioner/internal/tracing"
	"github.com/therealutkarshpriyadarshi/captioner/internal/webhook"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	layout, err := processor.NewLayout(cfg.Paths)
	if err != nil {
		logger.Fatalf("Failed to resolve paths: %v", err)
	}
	if err := layout.EnsureDirs(); err != nil {
		logger.Fatalf("Failed to prepare directories: %v", err)
	}

	// Initialize job store
	store, closeStore, err := newStore(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize job store: %v", err)
	}
	defer closeStore()
	logger.WithField("backend", cfg.Store.Backend).Info("Job store ready")

	var opts []processor.Option
	var archive ArchiveLinker

	// Initialize artifact archive
	if cfg.Storage.Enabled {
		stor, err := storage.New(cfg.Storage, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize storage: %v", err)
		}
		opts = append(opts, processor.WithArchive(stor))
		archive = stor
		logger.WithField("bucket", cfg.Storage.BucketName).Info("Artifact archive enabled")
	}

	// Initialize event publishers
	var publishers events.Multi
	if cfg.Events.Enabled {
		pub, err := events.NewAMQPPublisher(cfg.Events)
		if err != nil {
			logger.Fatalf("Failed to connect to message broker: %v", err)
		}
		publishers = append(publishers, pub)
		logger.WithField("exchange", cfg.Events.Exchange).Info("Job events enabled")
	}
	if len(cfg.Webhook.URLs) > 0 {
		publishers = append(publishers, webhook.NewPublisher(cfg.Webhook, logger))
		logger.WithField("urls", len(cfg.Webhook.URLs)).Info("Job webhooks enabled")
	}
	if len(publishers) > 0 {
		opts = append(opts, processor.WithEvents(publishers))
	}

	// Initialize tracing
	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing)
		if err != nil {
			logger.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer closer.Close()
	}

	proc := processor.New(cfg, layout, store, runner.NewExecRunner(logger), logger, opts...)

	api := &API{
		store:          store,
		jobs:           proc,
		layout:         layout,
		logger:         logger,
		maxUploadBytes: cfg.Server.MaxUploadBytes,
		archive:        archive,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var limiter *middleware.RateLimiter
	if cfg.Server.UploadRPS > 0 {
		limiter = middleware.NewRateLimiter(float64(cfg.Server.UploadRPS), cfg.Server.UploadBurst)
		go limiter.Cleanup(ctx, 10*time.Minute, 30*time.Minute)
	}

	router := setupRouter(api, limiter, cfg.Metrics.Port == 0)

	var metricsServer *metrics.Server
	if cfg.Metrics.Port > 0 {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, logger)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	// Running jobs are not cancellable; give them until the deadline to finish.
	if err := proc.Wait(shutdownCtx); err != nil {
		logger.Warn("Shutting down with jobs still running")
	}
	if err := publishers.Close(); err != nil {
		logger.ErrorWithErr("Failed to close event publishers", err)
	}

	logger.Info("Server stopped")
}

// loadConfig reads the config file, falling back to defaults when it does not exist
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newStore(cfg *config.Config) (jobstore.Store, func(), error) {
	if cfg.Store.Backend == "redis" {
		rs, err := jobstore.NewRedisStore(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	}
	return jobstore.NewMemoryStore(), func() {}, nil
}

func setupRouter(api *API, limiter *middleware.RateLimiter, serveMetrics bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(api.logger))

	// Health check
	router.GET("/health", api.healthCheck)
	if serveMetrics {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// API routes
	apiGroup := router.Group("/api")
	{
		uploadHandlers := []gin.HandlerFunc{}
		if limiter != nil {
			uploadHandlers = append(uploadHandlers, middleware.RateLimit(limiter))
		}
		uploadHandlers = append(uploadHandlers, api.upload)

		apiGroup.POST("/upload", uploadHandlers...)
		apiGroup.GET("/status/:id", api.status)
	}

	// Static artifacts
	router.Static("/uploads", api.layout.Uploads)
	router.Static("/out", api.layout.Output)
	router.NoRoute(gin.WrapH(http.FileServer(http.Dir(api.layout.Public))))

	return router
}
