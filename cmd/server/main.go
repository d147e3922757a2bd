package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/exam-delivery-service/internal/cache"
	"github.com/SAP-F-2025/exam-delivery-service/internal/config"
	"github.com/SAP-F-2025/exam-delivery-service/internal/events"
	"github.com/SAP-F-2025/exam-delivery-service/internal/handlers"
	"github.com/SAP-F-2025/exam-delivery-service/internal/middleware"
	"github.com/SAP-F-2025/exam-delivery-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-delivery-service/internal/services"
	"github.com/SAP-F-2025/exam-delivery-service/internal/utils"
	"github.com/SAP-F-2025/exam-delivery-service/internal/validator"
	"github.com/SAP-F-2025/exam-delivery-service/pkg"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.Environment, cfg.LogLevel, os.Stdout)
	slogger := logger.Slog()

	if err := run(cfg, logger); err != nil {
		slogger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger utils.Logger) error {
	slogger := logger.Slog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== STORAGE =====

	db, err := pkg.InitDatabase(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if cfg.AutoMigrate {
		if err := pkg.Migrate(db); err != nil {
			return err
		}
		slogger.Info("Database migrated")
	}
	if cfg.SeedDemo {
		test, err := pkg.SeedDemo(ctx, db)
		if err != nil {
			return err
		}
		slogger.Info("Demo test ready", "test_id", test.ID, "title", test.Title)
	}

	var cacheService cache.CacheService
	redisClient, err := pkg.NewRedisClient(ctx, cfg.RedisURL)
	switch {
	case err != nil:
		slogger.Warn("Redis unavailable, running without cache", "error", err)
	case redisClient != nil:
		defer redisClient.Close()
		cacheService = cache.NewRedisCache(redisClient, "exam", slogger)
	default:
		slogger.Info("Redis not configured, running without cache")
	}

	// ===== EVENTS =====

	publisher, subscriber, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		slogger.Error("Failed to create event publisher, falling back to mock", "error", err)
		publisher = events.NewMockEventPublisher(slogger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slogger.Error("Failed to close event publisher", "error", err)
		}
	}()
	if subscriber != nil {
		go func() {
			err := events.Consume(ctx, subscriber, cfg.Events.Topic, slogger, func(e *events.ExamEvent) {
				slogger.Info("Exam event", "event_id", e.ID, "event_type", e.Type)
			})
			if err != nil {
				slogger.Error("Event consumer stopped", "error", err)
			}
		}()
	}

	// ===== SERVICES =====

	serviceManager := services.NewServiceManager(
		postgres.NewRepositoryManager(db),
		cacheService,
		publisher,
		validator.New(),
		slogger,
		clockwork.NewRealClock(),
	)

	// ===== HTTP =====

	authenticator, err := middleware.NewAuthenticator(cfg.Auth)
	if err != nil {
		return err
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := middleware.NewMetrics()
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.CORS(cfg.CORSOrigins),
		metrics.Middleware(),
	)
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, "/health", "/metrics")
		go limiter.RunJanitor(ctx)
		router.Use(limiter.Middleware())
	}

	handlers.NewHandlerManager(serviceManager, middleware.Auth(authenticator, logger), metrics, logger).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slogger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slogger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
