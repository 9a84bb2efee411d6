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

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-identity/internal/app"
	"github.com/odyssey-erp/odyssey-identity/internal/catalog"
	"github.com/odyssey-erp/odyssey-identity/internal/credentials"
	"github.com/odyssey-erp/odyssey-identity/internal/identity"
	"github.com/odyssey-erp/odyssey-identity/internal/observability"
	"github.com/odyssey-erp/odyssey-identity/internal/platform/db"
	"github.com/odyssey-erp/odyssey-identity/internal/platform/kv"
	"github.com/odyssey-erp/odyssey-identity/internal/users"
	"github.com/odyssey-erp/odyssey-identity/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := kv.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	store := identity.NewStore(redisClient, identity.Options{
		Logger:       logger,
		OnDivergence: metrics.IndexDivergence,
	})
	hasher, err := credentials.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		logger.Error("init hasher", slog.Any("error", err))
		os.Exit(1)
	}
	usersService := users.NewService(store, hasher, logger, metrics)
	usersHandler := users.NewHandler(logger, usersService, cfg.UserRateLimits())

	var catalogHandler *catalog.Handler
	if cfg.CatalogEnabled() {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()

		catalogRepo := catalog.NewRepository(pool)
		if err := catalogRepo.EnsureSchema(ctx); err != nil {
			logger.Error("catalog schema", slog.Any("error", err))
			os.Exit(1)
		}
		catalogHandler = catalog.NewHandler(logger, catalog.NewService(catalogRepo, logger))
	}

	inspector := asynq.NewInspector(jobs.RedisOpt(cfg.RedisOptions()))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Health:         store,
		UsersHandler:   usersHandler,
		CatalogHandler: catalogHandler,
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
		AccessLog:      true,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Bool("catalog", catalogHandler != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
