package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/numbering/redis"
	"github.com/xraph/salesdoc/store"
	"github.com/xraph/salesdoc/store/memory"
	"github.com/xraph/salesdoc/store/mongo"
	"github.com/xraph/salesdoc/store/postgres"
	"github.com/xraph/salesdoc/store/sqlite"
)

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN, sqlite.WithLogger(logger))
	case "postgres":
		return postgres.New(ctx, cfg.DSN, postgres.WithLogger(logger))
	case "mongo":
		return mongo.New(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// app is an engine plus the resources it owns.
type app struct {
	engine  *salesdoc.Engine
	closers []func() error
}

// newRuntime opens the store and builds an engine from cfg. Extra options
// are applied last. The engine is started, so the store is migrated.
func newRuntime(ctx context.Context, cfg *Config, logger *slog.Logger, extra ...salesdoc.Option) (*app, error) {
	s, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}

	rt := &app{}
	opts := []salesdoc.Option{
		salesdoc.WithLogger(logger),
		salesdoc.WithConflictRetries(cfg.Engine.ConflictRetries),
		salesdoc.WithNumberWidth(cfg.Engine.NumberWidth),
		salesdoc.WithPluginTimeout(cfg.Engine.PluginTimeout),
	}

	if cfg.Redis.Numbering {
		backend, err := redis.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = s.Close()
			return nil, WrapExitError(ExitCommandError, "connect numbering backend", err)
		}
		rt.closers = append(rt.closers, backend.Close)
		opts = append(opts, salesdoc.WithNumbering(backend))
	}

	rt.engine = salesdoc.New(s, append(opts, extra...)...)
	if err := rt.engine.Start(ctx); err != nil {
		rt.Close()
		return nil, WrapExitError(ExitCommandError, "start engine", err)
	}
	return rt, nil
}

// Close stops the engine, which closes the store, then releases the rest.
func (rt *app) Close() {
	if rt.engine != nil {
		if err := rt.engine.Stop(); err != nil {
			rt.engine.Logger().Warn("stop engine", "error", err)
		}
	}
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i]()
	}
}

func redisOpt(cfg RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
