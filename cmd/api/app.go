package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go-pms-api/internal/config"
	"go-pms-api/internal/metrics"
	"go-pms-api/internal/supervisor"
)

const workerCommand = "worker"

type rootOptions struct {
	init   bool
	strict bool
}

func bindRootFlags(fs *pflag.FlagSet, o *rootOptions) {
	fs.BoolVar(&o.init, "init", false, "seed default roles and the admin user, then exit")
	fs.BoolVar(&o.strict, "strict", false, "with --init, exit non-zero when seeding fails")
}

func newRootCommand() *cobra.Command {
	var opts rootOptions
	cmd := &cobra.Command{
		Use:           "pms-api",
		Short:         "Project management API served by a self-healing pool of worker processes",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg).With(slog.String("role", "primary"))
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if opts.init {
				return runSeed(ctx, cfg, logger, opts.strict)
			}
			return runPrimary(ctx, cfg, logger)
		},
	}
	bindRootFlags(cmd.Flags(), &opts)
	cmd.AddCommand(newWorkerCommand())
	return cmd
}

func runPrimary(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	spawner, err := supervisor.SelfSpawner(workerCommand)
	if err != nil {
		return err
	}
	m := metrics.New()
	if cfg.MetricsAddr != "" {
		app := fiber.New(fiber.Config{DisableStartupMessage: true})
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
		go func() {
			if err := app.Listen(cfg.MetricsAddr); err != nil {
				logger.Error("primary metrics listener", slog.Any("error", err))
			}
		}()
		defer app.Shutdown()
	}

	workers := supervisor.DetectWorkers(cfg.Workers)
	logger.Info("starting workers", slog.Int("workers", workers), slog.Int("pid", os.Getpid()))
	p := &supervisor.Primary{
		Spawner:         spawner,
		Workers:         workers,
		Backoff:         cfg.RestartBackoff,
		ShutdownTimeout: cfg.ShutdownTimeout * 2,
		Logger:          logger,
		Observer:        m,
	}
	return p.Run(ctx)
}
