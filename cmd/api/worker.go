package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-pms-api/internal/cache"
	"go-pms-api/internal/config"
	"go-pms-api/internal/metrics"
	"go-pms-api/internal/model"
	"go-pms-api/internal/server"
	"go-pms-api/internal/service"
	"go-pms-api/internal/supervisor"
	"go-pms-api/pkg/database"
	"go-pms-api/pkg/jwt"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:    workerCommand,
		Short:  "Serve HTTP as one worker of the pool",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg).With(slog.String("role", "worker"), slog.Int("pid", os.Getpid()))
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if code := runWorker(ctx, cfg, logger); code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger) int {
	manager, err := database.NewManager(cfg.Database(), model.Entities(), database.WithLogger(logger))
	if err != nil {
		logger.Error("database manager", slog.Any("error", err))
		return supervisor.FaultExitCode
	}

	permCache, closeCache := newPermissionCache(ctx, cfg, logger)
	defer closeCache()

	srv, err := server.New(server.Deps{
		Manager:         manager,
		Tokens:          jwt.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Cache:           permCache,
		Metrics:         metrics.New(),
		Logger:          logger,
		ShutdownTimeout: cfg.ShutdownTimeout,
		AccessLog:       true,
	})
	if err != nil {
		logger.Error("build server", slog.Any("error", err))
		return supervisor.FaultExitCode
	}

	ln, err := server.Listen(":" + cfg.Port)
	if err != nil {
		logger.Error("listen", slog.Any("error", err))
		_ = srv.Close()
		return supervisor.FaultExitCode
	}

	w := supervisor.NewWorker(cfg.FaultDelay, logger)
	return w.Run(ctx, srv, ln)
}

// newPermissionCache connects the shared role permission cache when REDIS_ADDR is set.
// Without it every worker resolves permissions from the database.
func newPermissionCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.PermissionCache, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}
	client, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("permission cache disabled", slog.Any("error", err))
		return nil, func() {}
	}
	return cache.NewPermissionCache(client, cfg.PermissionCacheTTL), func() { _ = client.Close() }
}
