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

	"github.com/fakduai/khun-phaen-sync/internal/api"
	"github.com/fakduai/khun-phaen-sync/internal/auth"
	"github.com/fakduai/khun-phaen-sync/internal/cache"
	"github.com/fakduai/khun-phaen-sync/internal/config"
	"github.com/fakduai/khun-phaen-sync/internal/digest"
	"github.com/fakduai/khun-phaen-sync/internal/logging"
	"github.com/fakduai/khun-phaen-sync/internal/models"
	"github.com/fakduai/khun-phaen-sync/internal/observability"
	"github.com/fakduai/khun-phaen-sync/internal/roomrt"
	"github.com/fakduai/khun-phaen-sync/internal/store"
	"github.com/google/uuid"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize OpenTelemetry
	otelCleanup, err := observability.Init("khun-phaen-sync", "1.0.0")
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		if err := otelCleanup(context.Background()); err != nil {
			log.Printf("Error shutting down OpenTelemetry: %v", err)
		}
	}()

	// Initialize structured logger
	logger := logging.New(cfg.LogLevel)

	// runCtx is canceled on SIGINT/SIGTERM; the sweeper, digest scheduler
	// and every websocket session are bounded by it.
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize persistence (MongoDB)
	st, err := store.New(runCtx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		logger.Fatal(context.Background(), "Failed to initialize store: %v", err)
	}

	// Initialize cache (Redis) for the room-creation rate limiter
	redisCache, err := cache.New(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal(context.Background(), "Failed to initialize cache: %v", err)
	}

	jwtMgr, err := auth.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		logger.Fatal(context.Background(), "Failed to initialize JWT manager: %v", err)
	}

	bootstrapAdmin(runCtx, st, cfg, logger)

	// Room runtime: registry, revival, idle-eviction sweeper
	registry := roomrt.NewRegistry()
	reviver := roomrt.NewReviver(registry, store.NewRoomSnapshotAdapter(st))
	sweeper := roomrt.NewSweeper(registry, cfg.RoomIdleTimeout, logger.WithContext(runCtx))
	go sweeper.Run(runCtx)

	// Digest scheduler
	scheduler := digest.New(st, cfg.DigestUTCOffsetHrs, logger.WithContext(runCtx))
	go scheduler.Run(runCtx)

	// Setup HTTP router
	router := api.NewRouter(runCtx, st, redisCache, registry, reviver, jwtMgr, cfg, logger)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(runCtx, "Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Fatal(context.Background(), "Server error: %v", err)
	case <-runCtx.Done():
	}

	gracefulShutdown(logger, server, st, redisCache, otelCleanup)

	logger.Info(context.Background(), "Application stopped.")
}

// bootstrapAdmin creates the initial administrator account from environment
// variables when the user collection is empty, so a fresh deployment is
// usable without the HTTP setup-token flow.
func bootstrapAdmin(ctx context.Context, st *store.Store, cfg *config.Config, logger *logging.Logger) {
	if cfg.InitialAdminEmail == "" || cfg.InitialAdminPass == "" {
		return
	}

	count, err := st.CountUsers(ctx)
	if err != nil {
		logger.Error(ctx, "Bootstrap admin: counting users failed: %v", err)
		return
	}
	if count > 0 {
		return
	}

	hash, err := auth.HashPassword(cfg.InitialAdminPass)
	if err != nil {
		logger.Error(ctx, "Bootstrap admin: hashing password failed: %v", err)
		return
	}

	admin := models.User{
		ID:           uuid.NewString(),
		Email:        cfg.InitialAdminEmail,
		PasswordHash: hash,
		Nickname:     cfg.InitialAdminName,
		Role:         "admin",
	}
	if err := st.CreateUser(ctx, &admin); err != nil {
		logger.Error(ctx, "Bootstrap admin: creating user failed: %v", err)
		return
	}
	logger.Info(ctx, "Bootstrap admin account created: %s", admin.Email)
}

// gracefulShutdown drains the HTTP server and closes external connections.
// In-flight snapshot persists are not drained.
func gracefulShutdown(logger *logging.Logger, server *http.Server, st *store.Store, redisCache *cache.Cache, otelCleanup func(context.Context) error) {
	ctx := context.Background()
	logger.Info(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// 1. Stop accepting connections; websocket sessions were already told
	// to close by the canceled run context.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown error: %v", err)
	} else {
		logger.Info(ctx, "HTTP server stopped.")
	}

	// 2. Close MongoDB connection
	if err := st.Close(shutdownCtx); err != nil {
		logger.Error(ctx, "Store close error: %v", err)
	} else {
		logger.Info(ctx, "Store connection closed.")
	}

	// 3. Close Redis connection
	if err := redisCache.Close(); err != nil {
		logger.Error(ctx, "Redis cache close error: %v", err)
	} else {
		logger.Info(ctx, "Redis cache connection closed.")
	}

	// 4. Shutdown OpenTelemetry
	if otelCleanup != nil {
		if err := otelCleanup(shutdownCtx); err != nil {
			logger.Error(ctx, "OpenTelemetry shutdown error: %v", err)
		} else {
			logger.Info(ctx, "OpenTelemetry shut down.")
		}
	}

	logger.Info(ctx, "Graceful shutdown complete.")
}
