package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joescharf/tm/internal/models"
)

// TaskSource is the slice of actions.Tasks the sweep needs.
type TaskSource interface {
	ReloadTasks(ctx context.Context) error
	GetAllTasks() []*models.Task
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	At      time.Time
	Stats   models.TaskStats
	Overdue []*models.Task
}

// Sweeper reloads tasks from storage and reports the overdue ones.
type Sweeper struct {
	tasks   TaskSource
	logger  *slog.Logger
	now     func() time.Time
	OnSweep func(ctx context.Context, r SweepReport)
}

// NewSweeper creates a sweeper. now defaults to time.Now.
func NewSweeper(tasks TaskSource, logger *slog.Logger, now func() time.Time) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{tasks: tasks, logger: logger, now: now}
}

// Sweep reloads the store and collects overdue tasks.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	if err := s.tasks.ReloadTasks(ctx); err != nil {
		return SweepReport{}, fmt.Errorf("sweep reload: %w", err)
	}
	now := s.now()
	all := s.tasks.GetAllTasks()
	r := SweepReport{At: now, Stats: models.ComputeTaskStats(all, now)}
	for _, t := range all {
		if t.IsOverdue(now) {
			r.Overdue = append(r.Overdue, t)
		}
	}

	for _, t := range r.Overdue {
		s.logger.WarnContext(ctx, "task overdue",
			"id", t.ID,
			"title", t.Title,
			"assignee", t.Assignee,
			"due", t.DueDate.Format(time.RFC3339),
		)
	}
	s.logger.InfoContext(ctx, "overdue sweep finished",
		"total", r.Stats.Total,
		"overdue", r.Stats.Overdue,
		"completion_rate", r.Stats.CompletionRate,
	)
	if s.OnSweep != nil {
		s.OnSweep(ctx, r)
	}
	return r, nil
}

// Job adapts Sweep to a cron callback; errors are logged.
func (s *Sweeper) Job(ctx context.Context) func() {
	return func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.ErrorContext(ctx, "overdue sweep failed", "error", err)
		}
	}
}
