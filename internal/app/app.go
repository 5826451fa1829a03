package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/flunq-io/restinvoke/internal/config"
	"github.com/flunq-io/restinvoke/internal/events"
	"github.com/flunq-io/restinvoke/internal/executor"
	"github.com/flunq-io/restinvoke/internal/expression"
	"github.com/flunq-io/restinvoke/internal/invoker"
	"github.com/flunq-io/restinvoke/internal/processor"
	"github.com/flunq-io/restinvoke/internal/variables"
)

// App holds the components shared by the runner and the server
type App struct {
	Redis     *redis.Client
	Store     variables.Store
	Publisher events.Publisher
	Invoker   *invoker.Invoker
	Registry  *executor.Registry
	Runner    *processor.ProcessRunner

	logger *zap.Logger
}

// NewLogger builds a zap logger from the log settings
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	return zapConfig.Build()
}

// New connects to Redis when the store or events need it and wires the
// invoker, registry and runner.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	if cfg.NeedsRedis() {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Redis.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	a.Store = variables.NewMemoryStore(cfg.Store.TTL)
	if cfg.Store.Backend == "redis" {
		a.Store = variables.NewRedisStore(a.Redis, cfg.Store.KeyPrefix, cfg.Store.TTL, logger)
	}

	a.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		a.Publisher = events.NewRedisStreamPublisher(a.Redis, cfg.Events.Stream, logger)
	}

	a.Invoker = invoker.New(cfg.InvokerConfig(), logger)

	a.Registry = executor.NewRegistry(executor.Dependencies{
		Invoker:   a.Invoker,
		Resolver:  expression.NewEvaluator(logger),
		Publisher: a.Publisher,
		Options:   executor.Options{SplitMode: cfg.SplitMode()},
	}, logger)

	a.Runner = processor.NewProcessRunner(a.Registry, a.Store, logger)

	return a, nil
}

// RedisClient returns the Redis client as an interface, nil when unused
func (a *App) RedisClient() redis.UniversalClient {
	if a.Redis == nil {
		return nil
	}
	return a.Redis
}

// Close releases pooled connections
func (a *App) Close() {
	a.Invoker.Close()
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}
