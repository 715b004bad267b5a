package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/api"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/audit"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/config"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/database"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/face"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/repository"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/service"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Rekko enrollment API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session store
	var (
		repo repository.EnrollmentSessionRepositoryInterface
		db   database.Pinger
	)
	if cfg.UsesDatabase() {
		if err := database.MigrateUp(cfg.DatabaseURL, cfg.DatabaseName); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		repo = repository.NewEnrollmentSessionRepository(pool)
		db = pool
		logger.Info("sessions stored in postgres")
	} else {
		repo = repository.NewMemoryEnrollmentSessionRepository()
		logger.Warn("DATABASE_URL not set, sessions kept in memory")
	}

	verifier, err := face.NewFrameVerifier(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create frame verifier: %w", err)
	}

	// Background workers
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	hub := ws.NewHub(logger)
	go hub.Run(workerCtx)

	expiryWorker := service.NewExpiryWorker(repo, logger, cfg.ExpiryInterval)
	go expiryWorker.Run(workerCtx)

	svc := service.NewEnrollmentService(repo, verifier, hub, logger).
		WithSessionTTL(cfg.SessionTTL).
		WithAuditLogger(audit.NewSlogLogger(logger, cfg.ProviderType))

	// Setup router
	router := api.NewRouter(logger, &api.Dependencies{
		Service: svc,
		Hub:     hub,
		DB:      db,
		RateLimit: middleware.RateLimiterConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		},
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- router.Shutdown() }()

	select {
	case err := <-shutdownDone:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	cancelWorkers()
	logger.Info("server stopped")

	return nil
}
