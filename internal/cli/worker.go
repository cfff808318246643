package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/xraph/salesdoc/notify"
)

// NewWorkerCommand creates the worker command, which delivers queued
// notifications.
func NewWorkerCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process notification tasks from redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.Config
			if cfg.Redis.Addr == "" {
				return WrapExitError(ExitCommandError, "worker", errRedisRequired)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, cfg, root.Logger)
		},
	}
}

func runWorker(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	srv := asynq.NewServer(redisOpt(cfg.Redis), asynq.Config{
		Concurrency: cfg.Notify.Concurrency,
		Queues:      map[string]int{cfg.Notify.Queue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.ErrorContext(ctx, "notification task failed",
				"type", task.Type(),
				"error", err,
			)
		}),
	})

	mux := asynq.NewServeMux()
	notify.Register(mux, notify.LogSender{Logger: logger})

	if err := srv.Start(mux); err != nil {
		return WrapExitError(ExitCommandError, "start worker", err)
	}
	logger.Info("notification worker started", "queue", cfg.Notify.Queue)

	<-ctx.Done()
	srv.Shutdown()
	return nil
}
