// Package actions is the entry point for callers that want to change task
// or team member state. It validates input and forwards typed actions to
// the state store or the member controller.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joescharf/tm/internal/models"
	"github.com/joescharf/tm/internal/state"
)

// Option configures Tasks.
type Option func(*Tasks)

// WithReloadDelay sets how long batch operations wait before reloading the
// store. Zero reloads immediately.
func WithReloadDelay(d time.Duration) Option {
	return func(t *Tasks) { t.reloadDelay = d }
}

// WithTaskLogger sets the logger for batch progress.
func WithTaskLogger(l *slog.Logger) Option {
	return func(t *Tasks) {
		if l != nil {
			t.logger = l
		}
	}
}

// Tasks validates task intents and dispatches them to the store.
type Tasks struct {
	store       *state.Store
	logger      *slog.Logger
	reloadDelay time.Duration
}

// NewTasks returns a Tasks action layer over store.
func NewTasks(store *state.Store, opts ...Option) *Tasks {
	t := &Tasks{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// BatchFailure records why one id in a batch was not processed.
type BatchFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchResult reports the outcome of a batch. Items are processed in
// order and earlier successes are kept when later items fail.
type BatchResult struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// OK reports whether every item succeeded.
func (r BatchResult) OK() bool { return len(r.Failed) == 0 }

// CreateTask validates in and creates a task.
func (t *Tasks) CreateTask(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	if err := validateTaskInput(in); err != nil {
		return nil, err
	}
	res, err := t.store.Dispatch(ctx, state.CreateTask{Input: in})
	if err != nil {
		return nil, err
	}
	return res.Task, nil
}

// UpdateTask applies u to the task with the given id.
func (t *Tasks) UpdateTask(ctx context.Context, id string, u models.TaskUpdate) (*models.Task, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "task id is required")
	}
	if err := validateTaskUpdate(u); err != nil {
		return nil, err
	}
	res, err := t.store.Dispatch(ctx, state.UpdateTask{ID: id, Update: u})
	if err != nil {
		return nil, err
	}
	return res.Task, nil
}

// DeleteTask removes the task with the given id.
func (t *Tasks) DeleteTask(ctx context.Context, id string) (*models.Task, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "task id is required")
	}
	res, err := t.store.Dispatch(ctx, state.DeleteTask{ID: id})
	if err != nil {
		return nil, err
	}
	return res.Task, nil
}

// UpdateTaskStatus moves a task to status.
func (t *Tasks) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, invalid("status", fmt.Sprintf("invalid task status %q", status))
	}
	return t.UpdateTask(ctx, id, models.TaskUpdate{Status: &status})
}

// BatchUpdateTasks applies u to every id in order, then reloads the store.
func (t *Tasks) BatchUpdateTasks(ctx context.Context, ids []string, u models.TaskUpdate) (BatchResult, error) {
	if len(ids) == 0 {
		return BatchResult{}, invalid("ids", "task ids are required")
	}
	if err := validateTaskUpdate(u); err != nil {
		return BatchResult{}, err
	}
	return t.batch(ctx, "update", ids, func(id string) error {
		_, err := t.UpdateTask(ctx, id, u)
		return err
	})
}

// BatchDeleteTasks deletes every id in order, then reloads the store.
func (t *Tasks) BatchDeleteTasks(ctx context.Context, ids []string) (BatchResult, error) {
	if len(ids) == 0 {
		return BatchResult{}, invalid("ids", "task ids are required")
	}
	return t.batch(ctx, "delete", ids, func(id string) error {
		_, err := t.DeleteTask(ctx, id)
		return err
	})
}

func (t *Tasks) batch(ctx context.Context, op string, ids []string, fn func(id string) error) (BatchResult, error) {
	var res BatchResult
	for _, id := range ids {
		if err := fn(id); err != nil {
			res.Failed = append(res.Failed, BatchFailure{ID: id, Error: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	t.logger.InfoContext(ctx, "batch finished",
		slog.String("op", op),
		slog.Int("succeeded", len(res.Succeeded)),
		slog.Int("failed", len(res.Failed)),
	)

	if t.reloadDelay > 0 {
		timer := time.NewTimer(t.reloadDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return res, fmt.Errorf("batch %s reload: %w", op, ctx.Err())
		case <-timer.C:
		}
	}
	if err := t.ReloadTasks(ctx); err != nil {
		return res, fmt.Errorf("batch %s reload: %w", op, err)
	}
	return res, nil
}

// SetFilters merges patch into the store filters.
func (t *Tasks) SetFilters(ctx context.Context, patch models.FilterPatch) error {
	_, err := t.store.Dispatch(ctx, state.SetFilters{Patch: patch})
	return err
}

// ClearFilters resets all filters.
func (t *Tasks) ClearFilters(ctx context.Context) error {
	_, err := t.store.Dispatch(ctx, state.ClearFilters{})
	return err
}

// ReloadTasks re-reads tasks from the repository.
func (t *Tasks) ReloadTasks(ctx context.Context) error {
	_, err := t.store.Dispatch(ctx, state.Reload{})
	return err
}

// SearchTasks sets the free-text search filter.
func (t *Tasks) SearchTasks(ctx context.Context, term string) error {
	return t.SetFilters(ctx, models.FilterPatch{Search: &term})
}

// FilterByStatus sets the status filter. "" clears it.
func (t *Tasks) FilterByStatus(ctx context.Context, status string) error {
	return t.SetFilters(ctx, models.FilterPatch{Status: &status})
}

// FilterByAssignee sets the assignee filter. "" clears it.
func (t *Tasks) FilterByAssignee(ctx context.Context, assignee string) error {
	return t.SetFilters(ctx, models.FilterPatch{Assignee: &assignee})
}

// FilterByPriority sets the priority filter. "" clears it.
func (t *Tasks) FilterByPriority(ctx context.Context, priority string) error {
	return t.SetFilters(ctx, models.FilterPatch{Priority: &priority})
}

func (t *Tasks) GetTaskStatistics() models.TaskStats { return t.store.Statistics() }

func (t *Tasks) GetAllTasks() []*models.Task { return t.store.Tasks() }

func (t *Tasks) GetFilteredTasks() []*models.Task { return t.store.FilteredTasks() }

func (t *Tasks) GetTaskByID(id string) (*models.Task, bool) { return t.store.Task(id) }

func (t *Tasks) GetTasksByStatus(status models.TaskStatus) []*models.Task {
	return t.store.TasksByStatus(status)
}

// Error returns the store's last failure message.
func (t *Tasks) Error() string { return t.store.Error() }

// Subscribe registers a change listener on the store.
func (t *Tasks) Subscribe(fn state.Listener) state.Subscription { return t.store.Subscribe(fn) }

// Unsubscribe removes a change listener.
func (t *Tasks) Unsubscribe(id state.Subscription) { t.store.Unsubscribe(id) }

// IsNotFound reports whether err means the task or member does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, state.ErrNotFound) || errors.Is(err, ErrMemberNotFound)
}

func validateTaskInput(in models.TaskInput) error {
	fe := FieldErrors{}
	checkTitle(fe, in.Title)
	checkDescription(fe, in.Description)
	if in.Priority != "" && !in.Priority.Valid() {
		fe["priority"] = fmt.Sprintf("invalid priority %q", in.Priority)
	}
	return fe.err()
}

func validateTaskUpdate(u models.TaskUpdate) error {
	fe := FieldErrors{}
	if u.Title != nil {
		checkTitle(fe, *u.Title)
	}
	if u.Description != nil {
		checkDescription(fe, *u.Description)
	}
	if u.Priority != nil && !u.Priority.Valid() {
		fe["priority"] = fmt.Sprintf("invalid priority %q", *u.Priority)
	}
	if u.Status != nil && !u.Status.Valid() {
		fe["status"] = fmt.Sprintf("invalid task status %q", *u.Status)
	}
	return fe.err()
}

func checkTitle(fe FieldErrors, title string) {
	switch {
	case strings.TrimSpace(title) == "":
		fe["title"] = "title is required"
	case utf8.RuneCountInString(title) > models.MaxTitleLength:
		fe["title"] = fmt.Sprintf("title must be at most %d characters", models.MaxTitleLength)
	}
}

func checkDescription(fe FieldErrors, desc string) {
	if utf8.RuneCountInString(desc) > models.MaxDescriptionLength {
		fe["description"] = fmt.Sprintf("description must be at most %d characters", models.MaxDescriptionLength)
	}
}
