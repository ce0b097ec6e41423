// Package state holds the canonical in-process task state. All changes go
// through Store.Dispatch; interested parties subscribe and re-read the
// store after every change.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joescharf/tm/internal/models"
)

const instrumentationName = "github.com/joescharf/tm/internal/state"

var tracer = otel.Tracer(instrumentationName)

var (
	// ErrNotFound is returned when an update or delete names an unknown task.
	ErrNotFound = errors.New("task not found")
	// ErrUnknownAction is returned for an Action the store does not handle.
	ErrUnknownAction = errors.New("unknown action")
)

// TaskRepository is the persistence side of the store. controller.Tasks
// satisfies it.
type TaskRepository interface {
	GetAll(ctx context.Context) ([]*models.Task, error)
	Create(ctx context.Context, in models.TaskInput) (*models.Task, error)
	Update(ctx context.Context, id string, u models.TaskUpdate) (*models.Task, bool)
	Delete(ctx context.Context, id string) (*models.Task, bool)
}

// Result is what a dispatch produced. Task is a copy of the created,
// updated or deleted task, nil for other actions.
type Result struct {
	Task *models.Task
}

// Snapshot is a consistent copy of the whole store state.
type Snapshot struct {
	Tasks   []*models.Task
	Loading bool
	Error   string
	Filters models.Filters
	Version uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for listener panics and action failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for overdue calculations.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store owns the task list, loading flag, error message and filters.
//
// Dispatch calls are serialized and listeners run synchronously inside
// Dispatch, so a listener must not call Dispatch itself. Getters never
// wait on listeners.
type Store struct {
	repo   TaskRepository
	logger *slog.Logger
	now    func() time.Time

	dispatchMu sync.Mutex

	mu      sync.RWMutex
	tasks   []*models.Task
	loading bool
	errMsg  string
	filters models.Filters
	version uint64

	subMu   sync.Mutex
	nextSub Subscription
	subs    []subscriber

	dispatches metric.Int64Counter
}

// New returns an empty store backed by repo. Dispatch Reload to populate it.
func New(repo TaskRepository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter("tm.store.dispatches",
		metric.WithDescription("Number of actions dispatched to the task store"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		s.logger.Warn("create dispatch counter", slog.Any("error", err))
	}
	s.dispatches = counter
	return s
}

// Dispatch applies a to the store and notifies listeners.
func (s *Store) Dispatch(ctx context.Context, a Action) (Result, error) {
	if a == nil {
		return Result{}, ErrUnknownAction
	}
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	ctx, span := tracer.Start(ctx, "Store.Dispatch",
		trace.WithAttributes(attribute.String("action", a.actionName())),
	)
	defer span.End()

	res, err := s.reduce(ctx, a)
	if s.dispatches != nil {
		s.dispatches.Add(ctx, 1, metric.WithAttributes(
			attribute.String("action", a.actionName()),
			attribute.Bool("error", err != nil),
		))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (s *Store) reduce(ctx context.Context, a Action) (Result, error) {
	switch a := a.(type) {
	case Reload:
		return Result{}, s.reload(ctx)
	case CreateTask:
		return s.create(ctx, a)
	case UpdateTask:
		return s.update(ctx, a)
	case DeleteTask:
		return s.delete(ctx, a)
	case SetFilters:
		s.mu.Lock()
		s.filters = s.filters.Merge(a.Patch)
		s.mu.Unlock()
		s.emit(ctx, KindFiltersChanged, "")
		return Result{}, nil
	case ClearFilters:
		s.mu.Lock()
		s.filters = models.Filters{}
		s.mu.Unlock()
		s.emit(ctx, KindFiltersChanged, "")
		return Result{}, nil
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
}

func (s *Store) reload(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	s.emit(ctx, KindLoading, "")

	var tasks []*models.Task
	err := guard(func() (err error) {
		tasks, err = s.repo.GetAll(ctx)
		return err
	})

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.errMsg = "failed to load tasks"
	} else {
		s.tasks = cloneTasks(tasks)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.ErrorContext(ctx, "load tasks", slog.Any("error", err))
		s.emit(ctx, KindFailed, "")
		return fmt.Errorf("load tasks: %w", err)
	}
	s.emit(ctx, KindLoaded, "")
	return nil
}

func (s *Store) create(ctx context.Context, a CreateTask) (Result, error) {
	var task *models.Task
	err := guard(func() (err error) {
		task, err = s.repo.Create(ctx, a.Input)
		return err
	})
	if err != nil {
		s.fail(ctx, "failed to create task", err)
		return Result{}, fmt.Errorf("create task: %w", err)
	}

	s.mu.Lock()
	s.tasks = append(s.tasks, task.Clone())
	s.errMsg = ""
	s.mu.Unlock()
	s.emit(ctx, KindTasksChanged, task.ID)
	return Result{Task: task.Clone()}, nil
}

func (s *Store) update(ctx context.Context, a UpdateTask) (Result, error) {
	var (
		task  *models.Task
		found bool
	)
	err := guard(func() error {
		task, found = s.repo.Update(ctx, a.ID, a.Update)
		return nil
	})
	if err != nil {
		s.fail(ctx, "failed to update task", err)
		return Result{}, fmt.Errorf("update task %s: %w", a.ID, err)
	}
	if !found {
		s.emit(ctx, KindTasksChanged, a.ID)
		return Result{}, fmt.Errorf("update task %s: %w", a.ID, ErrNotFound)
	}

	s.mu.Lock()
	if i := indexOf(s.tasks, a.ID); i >= 0 {
		s.tasks[i] = task.Clone()
	}
	s.errMsg = ""
	s.mu.Unlock()
	s.emit(ctx, KindTasksChanged, a.ID)
	return Result{Task: task.Clone()}, nil
}

func (s *Store) delete(ctx context.Context, a DeleteTask) (Result, error) {
	var (
		task  *models.Task
		found bool
	)
	err := guard(func() error {
		task, found = s.repo.Delete(ctx, a.ID)
		return nil
	})
	if err != nil {
		s.fail(ctx, "failed to delete task", err)
		return Result{}, fmt.Errorf("delete task %s: %w", a.ID, err)
	}
	if !found {
		s.emit(ctx, KindTasksChanged, a.ID)
		return Result{}, fmt.Errorf("delete task %s: %w", a.ID, ErrNotFound)
	}

	s.mu.Lock()
	if i := indexOf(s.tasks, a.ID); i >= 0 {
		s.tasks = slices.Delete(s.tasks, i, i+1)
	}
	s.errMsg = ""
	s.mu.Unlock()
	s.emit(ctx, KindTasksChanged, a.ID)
	return Result{Task: task.Clone()}, nil
}

func (s *Store) fail(ctx context.Context, msg string, err error) {
	s.logger.ErrorContext(ctx, msg, slog.Any("error", err))
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	s.emit(ctx, KindFailed, "")
}

// guard runs fn and turns a panic into an error so that a misbehaving
// repository cannot take the store down with it.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("repository panic: %v", r)
		}
	}()
	return fn()
}

// Subscribe registers fn and returns a handle for Unsubscribe. Listeners
// are called in registration order.
func (s *Store) Subscribe(fn Listener) Subscription {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: s.nextSub, fn: fn})
	return s.nextSub
}

// Unsubscribe removes a listener. Unknown handles are ignored.
func (s *Store) Unsubscribe(id Subscription) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
}

func (s *Store) emit(ctx context.Context, kind Kind, taskID string) {
	s.mu.Lock()
	s.version++
	change := Change{Kind: kind, Version: s.version, TaskID: taskID}
	s.mu.Unlock()

	s.subMu.Lock()
	subs := slices.Clone(s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		s.notify(ctx, sub, change)
	}
}

func (s *Store) notify(ctx context.Context, sub subscriber, change Change) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "listener panicked",
				slog.Uint64("subscription", uint64(sub.id)),
				slog.String("change", change.Kind.String()),
				slog.Any("panic", r),
			)
		}
	}()
	sub.fn(change)
}

// Tasks returns every task in insertion order.
func (s *Store) Tasks() []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.tasks)
}

// Task returns the task with the given id.
func (s *Store) Task(id string) (*models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.tasks, id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return nil, false
}

// FilteredTasks returns the tasks matching the current filters.
func (s *Store) FilteredTasks() []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(models.FilterTasks(s.tasks, s.filters))
}

// TasksByStatus returns the tasks in the given status.
func (s *Store) TasksByStatus(status models.TaskStatus) []*models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Task
	for _, t := range s.tasks {
		if t.Status == status {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Statistics summarizes the current task list.
func (s *Store) Statistics() models.TaskStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.ComputeTaskStats(s.tasks, s.now())
}

// Loading reports whether a reload is in progress.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Error returns the message of the last failed action, or "".
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Filters returns a copy of the current filters.
func (s *Store) Filters() models.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// Version increases by one with every emitted change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the whole state under a single read lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Tasks:   cloneTasks(s.tasks),
		Loading: s.loading,
		Error:   s.errMsg,
		Filters: s.filters,
		Version: s.version,
	}
}

func indexOf(tasks []*models.Task, id string) int {
	return slices.IndexFunc(tasks, func(t *models.Task) bool { return t.ID == id })
}

func cloneTasks(tasks []*models.Task) []*models.Task {
	out := make([]*models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
