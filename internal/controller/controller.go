// Package controller holds the CRUD façades over tasks and team members.
// Each controller owns an in-memory, insertion-ordered collection and saves
// the whole collection to a kv.Store after every mutation.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joescharf/tm/internal/kv"
)

// Fixed storage keys for the persisted collections.
const (
	TasksKey   = "tasks"
	MembersKey = "teamMembers"
)

// Option configures a controller.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// WithLogger sets the logger used to report persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// save marshals v and writes it under key. Errors are logged, never returned:
// the in-memory collection stays authoritative for the session.
func save(ctx context.Context, store kv.Store, logger *slog.Logger, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.ErrorContext(ctx, "encode collection", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := store.Set(ctx, key, data); err != nil {
		logger.ErrorContext(ctx, "save collection", slog.String("key", key), slog.Any("error", err))
	}
}

// load reads key into v. A missing key leaves v untouched and is not an error.
func load(ctx context.Context, store kv.Store, key string, v any) error {
	data, err := store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
