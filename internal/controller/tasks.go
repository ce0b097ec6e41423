package controller

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/joescharf/tm/internal/kv"
	"github.com/joescharf/tm/internal/models"
)

// Tasks is the task repository. It is safe for concurrent use and only
// ever hands out copies of its records.
type Tasks struct {
	mu     sync.RWMutex
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
	tasks  []*models.Task
}

// NewTasks builds a controller and loads any previously saved tasks.
// An unreadable payload is logged and the controller starts empty.
func NewTasks(ctx context.Context, store kv.Store, opts ...Option) *Tasks {
	o := buildOptions(opts)
	c := &Tasks{store: store, logger: o.logger, now: o.now}

	var persisted []models.PersistedTask
	if err := load(ctx, store, TasksKey, &persisted); err != nil {
		c.logger.ErrorContext(ctx, "load tasks", slog.Any("error", err))
		return c
	}
	for _, p := range persisted {
		c.tasks = append(c.tasks, models.TaskFromPersisted(p))
	}
	return c
}

// Create builds and stores a new task. Input failing Task.Validate is
// rejected with models.ErrInvalidTask and nothing is stored.
func (c *Tasks) Create(ctx context.Context, in models.TaskInput) (*models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	task := models.NewTask(in, c.now())
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	c.tasks = append(c.tasks, task)
	c.saveLocked(ctx)
	return task.Clone(), nil
}

// GetAll returns every task in insertion order. The in-memory collection
// cannot fail to read; the error exists for repositories that can.
func (c *Tasks) GetAll(_ context.Context) ([]*models.Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneTasks(c.tasks), nil
}

// GetByID returns the task and true, or nil and false when absent.
func (c *Tasks) GetByID(_ context.Context, id string) (*models.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.tasks[i].Clone(), true
	}
	return nil, false
}

// Update applies u to the task with the given id.
func (c *Tasks) Update(ctx context.Context, id string, u models.TaskUpdate) (*models.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	c.tasks[i].Apply(u, c.now())
	c.saveLocked(ctx)
	return c.tasks[i].Clone(), true
}

// Delete removes the task and returns it.
func (c *Tasks) Delete(ctx context.Context, id string) (*models.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	removed := c.tasks[i]
	c.tasks = slices.Delete(c.tasks, i, i+1)
	c.saveLocked(ctx)
	return removed, true
}

// ByStatus returns tasks with the given status.
func (c *Tasks) ByStatus(_ context.Context, status models.TaskStatus) []*models.Task {
	return c.where(func(t *models.Task) bool { return t.Status == status })
}

// ByAssignee returns tasks assigned to the given name.
func (c *Tasks) ByAssignee(_ context.Context, assignee string) []*models.Task {
	return c.where(func(t *models.Task) bool { return t.Assignee == assignee })
}

// Overdue returns tasks past their due date that are not completed.
func (c *Tasks) Overdue(_ context.Context) []*models.Task {
	now := c.now()
	return c.where(func(t *models.Task) bool { return t.IsOverdue(now) })
}

// Statistics summarizes the collection.
func (c *Tasks) Statistics(_ context.Context) models.TaskStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.ComputeTaskStats(c.tasks, c.now())
}

func (c *Tasks) where(keep func(*models.Task) bool) []*models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*models.Task
	for _, t := range c.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

func (c *Tasks) indexLocked(id string) int {
	return slices.IndexFunc(c.tasks, func(t *models.Task) bool { return t.ID == id })
}

func (c *Tasks) saveLocked(ctx context.Context) {
	persisted := make([]models.PersistedTask, len(c.tasks))
	for i, t := range c.tasks {
		persisted[i] = t.Persisted()
	}
	save(ctx, c.store, c.logger, TasksKey, persisted)
}

func cloneTasks(tasks []*models.Task) []*models.Task {
	out := make([]*models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
