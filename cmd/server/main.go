package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashboard-server/internal/account"
	"dashboard-server/internal/auth"
	"dashboard-server/internal/middleware"
	"dashboard-server/internal/server"
	serverHandlers "dashboard-server/internal/server/handlers"
	"dashboard-server/internal/shared/config"
	"dashboard-server/internal/shared/cookies"
	"dashboard-server/internal/shared/database"
	"dashboard-server/internal/shared/logger"
	"dashboard-server/internal/shared/redis"
)

const stateCleanupInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	appLogger := logger.Init(cfg)

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Starting dashboard server",
		"port", cfg.Server.Port,
		"environment", cfg.Server.Environment,
		"providers", cfg.Auth.Providers)

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var accountRepo account.Repository
	if db != nil {
		if err := db.RunMigrations(ctx); err != nil {
			return err
		}
		accountRepo = account.NewPostgresRepository(db.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
	}

	accountService := account.NewService(accountRepo, appLogger)
	health := serverHandlers.NewHealthHandler(accountService)

	var stateStore auth.StateStore
	if redisClient != nil {
		stateStore = auth.NewRedisStateStore(redisClient.Client)
		health.AddDependency("redis", redisClient)
	} else {
		memoryStore := auth.NewMemoryStateStore()
		go memoryStore.Run(ctx, stateCleanupInterval)
		stateStore = memoryStore
	}
	if db != nil {
		health.AddDependency("database", db)
	}

	policy, err := auth.NewPolicy(ctx, cfg)
	if err != nil {
		return err
	}

	sessions := auth.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionMaxAge)
	resolver := auth.NewResolver(sessions, cookies.NewOptions(cfg))
	authService := auth.NewService(accountService, sessions, appLogger)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	go rateLimiter.Run(ctx)

	routes := server.NewRoutes(
		cfg,
		policy,
		auth.NewStateManager(stateStore),
		authService,
		resolver,
		health,
		rateLimiter,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      routes.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Dashboard server listening", "addr", srv.Addr, "url", cfg.Server.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down server", "timeout", cfg.Server.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	appLogger.Info("Server stopped")
	return nil
}
