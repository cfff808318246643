package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/api"
	audithook "github.com/xraph/salesdoc/audit_hook"
	"github.com/xraph/salesdoc/notify"
	"github.com/xraph/salesdoc/observability"
)

// NewServeCommand creates the serve command.
func NewServeCommand(root *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				root.Config.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, root.Config, root.Logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	plugins, closers := servePlugins(cfg, logger, registry)
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()

	rt, err := newRuntime(ctx, cfg, logger, plugins...)
	if err != nil {
		return err
	}
	defer rt.Close()

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(rt.engine)
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	errc := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitCommandError, "http server", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

// servePlugins builds the plugins the server runs with: audit logging,
// metrics when enabled and notifications when enabled.
func servePlugins(cfg *Config, logger *slog.Logger, registry *prometheus.Registry) ([]salesdoc.Option, []func() error) {
	audit := audithook.New(audithook.RecorderFunc(func(ctx context.Context, ev *audithook.AuditEvent) error {
		logger.InfoContext(ctx, "audit",
			"action", ev.Action,
			"resource", ev.Resource,
			"resource_id", ev.ResourceID,
			"actor_id", ev.ActorID,
			"outcome", ev.Outcome,
		)
		return nil
	}), audithook.WithLogger(logger))

	opts := []salesdoc.Option{salesdoc.WithPlugin(audit)}
	var closers []func() error

	if cfg.Metrics.Enabled {
		factory := observability.NewPrometheusFactory(registry, nil)
		opts = append(opts, salesdoc.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	if cfg.Notify.Enabled {
		client := asynq.NewClient(redisOpt(cfg.Redis))
		closers = append(closers, client.Close)
		opts = append(opts, salesdoc.WithPlugin(notify.NewNotifier(client,
			notify.WithQueue(cfg.Notify.Queue),
			notify.WithMaxRetry(cfg.Notify.MaxRetry),
			notify.WithLogger(logger),
		)))
	}

	return opts, closers
}
