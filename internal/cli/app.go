package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/andywolf/agenda/internal/catalog"
	"github.com/andywolf/agenda/internal/config"
	"github.com/andywolf/agenda/internal/engine"
	"github.com/andywolf/agenda/internal/events"
	"github.com/andywolf/agenda/internal/guard"
	"github.com/andywolf/agenda/internal/logging"
	"github.com/andywolf/agenda/internal/matcher"
	"github.com/andywolf/agenda/internal/registry"
	"github.com/andywolf/agenda/internal/store"
)

// app bundles what every command needs: configuration, a logger and the
// priority store for the configured agent.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  store.Store
	tasks  *catalog.Memory
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return nil, err
	}

	s, err := cfg.OpenStore()
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, store: s}
	if cfg.TasksFile != "" {
		tasks, err := catalog.LoadFile(cfg.TasksFile)
		if err != nil {
			a.close()
			return nil, err
		}
		a.tasks = tasks
	}
	return a, nil
}

func (a *app) close() {
	if c, ok := a.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *app) registryOptions() []registry.Option {
	if a.tasks == nil {
		return nil
	}
	return []registry.Option{registry.WithTaskChecker(a.tasks.Has)}
}

// registry loads the agent's stored priorities.
func (a *app) registry(ctx context.Context) (*registry.Registry, error) {
	r, err := store.LoadRegistry(ctx, a.store, a.cfg.Agent, a.registryOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load priorities for %s: %w", a.cfg.Agent, err)
	}
	return r, nil
}

// save persists the registry contents.
func (a *app) save(ctx context.Context, r *registry.Registry) error {
	if err := a.store.Save(ctx, a.cfg.Agent, r.List()); err != nil {
		return fmt.Errorf("failed to save priorities for %s: %w", a.cfg.Agent, err)
	}
	return nil
}

// engine builds an engine over r. Events go to the configured event log and
// to any extra writers. The returned func closes the event log.
func (a *app) engine(r *registry.Registry, extra ...events.Writer) (*engine.Engine, func(), error) {
	mode, err := matcher.ParseMode(a.cfg.Matcher.Mode)
	if err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{engine.WithLogger(a.logger)}
	if a.tasks != nil {
		opts = append(opts, engine.WithTasks(a.tasks))
	}

	cleanup := func() {}
	var sinks events.Multi
	if a.cfg.Events.Enabled {
		sink, err := events.NewFileSink(a.cfg.Events.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open event log: %w", err)
		}
		sinks = append(sinks, sink)
		cleanup = func() {
			if err := sink.Close(); err != nil {
				a.logger.Warn("failed to close event log", zap.Error(err))
			}
		}
	}
	sinks = append(sinks, extra...)
	switch len(sinks) {
	case 0:
	case 1:
		opts = append(opts, engine.WithSink(sinks[0]))
	default:
		opts = append(opts, engine.WithSink(sinks))
	}

	return engine.New(r, matcher.New(mode), guard.New(), opts...), cleanup, nil
}
