// Package app wires the key-value store, controllers, state store and
// action layer into one explicitly constructed container.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joescharf/tm/internal/actions"
	"github.com/joescharf/tm/internal/controller"
	"github.com/joescharf/tm/internal/kv"
	"github.com/joescharf/tm/internal/state"
)

// Config controls how an App is built.
type Config struct {
	// DBPath is the SQLite file backing the key-value store. Empty means
	// an in-memory store that is lost on Close.
	DBPath string
	// ReloadDelay is the pause before the store reloads after a batch.
	ReloadDelay time.Duration
	Logger      *slog.Logger
	// Clock overrides time.Now. Used by tests.
	Clock func() time.Time
}

// App owns every long-lived component. Build one with New and release it
// with Close.
type App struct {
	KV         kv.Store
	TaskRepo   *controller.Tasks
	MemberRepo *controller.Members
	Store      *state.Store
	Tasks      *actions.Tasks
	Members    *actions.Members

	cfg    Config
	logger *slog.Logger
}

// New opens the key-value store, loads persisted tasks and members and
// performs the initial reload of the state store.
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var store kv.Store
	if cfg.DBPath == "" {
		store = kv.NewMemoryStore()
	} else {
		s, err := kv.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		store = s
	}

	a := &App{KV: store, cfg: cfg, logger: logger}
	if err := a.build(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	ctrlOpts := []controller.Option{controller.WithLogger(a.logger)}
	stateOpts := []state.Option{state.WithLogger(a.logger)}
	if a.cfg.Clock != nil {
		ctrlOpts = append(ctrlOpts, controller.WithClock(a.cfg.Clock))
		stateOpts = append(stateOpts, state.WithClock(a.cfg.Clock))
	}

	a.TaskRepo = controller.NewTasks(ctx, a.KV, ctrlOpts...)
	a.MemberRepo = controller.NewMembers(ctx, a.KV, ctrlOpts...)
	a.Store = state.New(a.TaskRepo, stateOpts...)
	a.Tasks = actions.NewTasks(a.Store,
		actions.WithReloadDelay(a.cfg.ReloadDelay),
		actions.WithTaskLogger(a.logger),
	)
	a.Members = actions.NewMembers(a.MemberRepo)

	if err := a.Tasks.ReloadTasks(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	return nil
}

// Reset wipes persisted tasks and members and rebuilds every component
// on the same key-value store. Existing subscriptions are dropped.
func (a *App) Reset(ctx context.Context) error {
	for _, key := range []string{controller.TasksKey, controller.MembersKey} {
		if err := a.KV.Delete(ctx, key); err != nil && !errors.Is(err, kv.ErrNotFound) {
			return fmt.Errorf("reset %s: %w", key, err)
		}
	}
	return a.build(ctx)
}

// Close releases the key-value store.
func (a *App) Close() error {
	if a.KV == nil {
		return nil
	}
	return a.KV.Close()
}
