package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/go-redis/redis/v8"
	"github.com/phrazzld/namegen-api/internal/config"
	"github.com/phrazzld/namegen-api/internal/dispatch"
	"github.com/phrazzld/namegen-api/internal/events"
	"github.com/phrazzld/namegen-api/internal/generation"
	"github.com/phrazzld/namegen-api/internal/platform/gemini"
	"github.com/phrazzld/namegen-api/internal/platform/postgres"
	"github.com/phrazzld/namegen-api/internal/platform/redis"
	"github.com/phrazzld/namegen-api/internal/service"
	"github.com/phrazzld/namegen-api/internal/slug"
	"github.com/phrazzld/namegen-api/internal/store"
	"github.com/phrazzld/namegen-api/internal/store/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// backing store connections; at most one is set
	db    *sql.DB
	redis *goredis.Client

	taskStore   store.TaskStore
	generator   generation.Generator
	dispatcher  *dispatch.Dispatcher
	taskService service.TaskService
	registry    *prometheus.Registry
}

// newApplication creates a new application instance with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := app.openStore(ctx); err != nil {
		return nil, err
	}

	var err error
	app.generator, err = newGenerator(ctx, cfg.LLM, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	app.dispatcher = dispatch.New(
		app.taskStore,
		app.generator,
		dispatch.ConfigFromSettings(cfg.Dispatch),
		logger,
		dispatch.MustNewMetrics(app.registry),
	)

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(dispatch.NewEventHandler(app.taskStore, app.dispatcher, logger))

	app.taskService, err = service.NewTaskService(app.taskStore, slug.NewAllocator(), emitter, cfg.Task, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// openStore connects the configured task store backend.
func (app *application) openStore(ctx context.Context) error {
	cfg := app.config
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := postgres.Open(ctx, cfg.Database, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open postgres store: %w", err)
		}
		app.db = db
		app.taskStore = postgres.NewPostgresTaskStore(db, app.logger)
	case config.StoreDriverRedis:
		client, err := redis.Open(ctx, cfg.Redis, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open redis store: %w", err)
		}
		app.redis = client
		app.taskStore = redis.NewRedisTaskStore(client, cfg.Redis.KeyPrefix, app.logger)
	case config.StoreDriverMemory:
		app.logger.Warn("using in-memory task store, tasks are lost on restart")
		app.taskStore = memory.NewTaskStore(app.logger)
	default:
		return fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	app.logger.Info("task store ready", slog.String("driver", cfg.Store.Driver))
	return nil
}

// newGenerator creates the configured generation engine client.
func newGenerator(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (generation.Generator, error) {
	switch cfg.Provider {
	case config.LLMProviderGemini:
		return gemini.NewGeminiGenerator(ctx, logger.With(slog.String("component", "llm_generator")), cfg)
	case config.LLMProviderStatic:
		logger.Warn("using static generator, every task receives the same name")
		return generation.NewStaticGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", generation.ErrInvalidConfig, cfg.Provider)
	}
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.dispatcher != nil {
		app.dispatcher.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
