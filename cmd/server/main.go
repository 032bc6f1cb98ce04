package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/stylhelpr/stylhelpr-backend/config"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/controller"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/repository"
	"github.com/stylhelpr/stylhelpr-backend/internal/app/service"
	"github.com/stylhelpr/stylhelpr-backend/internal/db"
	"github.com/stylhelpr/stylhelpr-backend/internal/middleware"
	"github.com/stylhelpr/stylhelpr-backend/internal/router"
	"github.com/stylhelpr/stylhelpr-backend/internal/scheduler"
	"github.com/stylhelpr/stylhelpr-backend/internal/storage"
	ws "github.com/stylhelpr/stylhelpr-backend/internal/websocket"
	"github.com/stylhelpr/stylhelpr-backend/pkg/logger"
	"github.com/stylhelpr/stylhelpr-backend/pkg/redis"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: logFormat == "console",
	})

	logger.Info("Starting StylHelpr Backend Server", map[string]interface{}{
		"environment":   cfg.Server.Environment,
		"port":          cfg.Server.Port,
		"base_path":     cfg.Server.BasePath,
		"auth_required": cfg.Auth.Required,
		"log_level":     logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Handoff store: Redis when configured, otherwise in-memory with a sweeper
	var handoffStore repository.HandoffStore
	var sweeper *scheduler.HandoffSweeper
	if cfg.Redis.Enabled() {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer redis.Close()
		handoffStore = repository.NewRedisHandoffStore(redis.GetClient())
	} else {
		memoryStore, err := repository.NewMemoryHandoffStore(cfg.Handoff.MemoryCapacity)
		if err != nil {
			logger.Fatal("Failed to create in-memory handoff store", err)
		}
		logger.Warn("REDIS_HOST not set, handoffs are kept in process memory", map[string]interface{}{
			"capacity": cfg.Handoff.MemoryCapacity,
		})
		handoffStore = memoryStore
		sweeper = scheduler.NewHandoffSweeper(memoryStore, scheduler.DefaultSweepSpec)
		if err := sweeper.Start(); err != nil {
			logger.Fatal("Failed to start handoff sweeper", err)
		}
	}

	hub := ws.NewHub()
	var uploadController *controller.UploadController
	if cfg.S3.Enabled() {
		uploadController = controller.NewUploadController(storage.NewS3Storage(ctx, &cfg.S3))
	} else {
		logger.Warn("AWS_S3_BUCKET not set, thumbnail uploads are disabled")
	}

	// Initialize services
	outfitService := service.NewCustomOutfitService(repository.NewCustomOutfitRepository(db.GetDB()), hub)
	handoffService := service.NewHandoffService(handoffStore, cfg.Handoff.TTL)

	// Setup router
	r := router.NewRouter(
		controller.NewCustomOutfitController(outfitService),
		controller.NewHandoffController(handoffService),
		uploadController,
		controller.NewWebSocketController(hub, cfg.CORS.AllowedOrigins),
		middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if sweeper != nil {
			sweeper.Stop(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", err)
		return
	}
	logger.Info("Server stopped successfully")
}
