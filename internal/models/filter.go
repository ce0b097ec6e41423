package models

import (
	"strings"
	"time"
)

// Filters narrows a task listing. Empty fields do not filter.
type Filters struct {
	Status   string `json:"status"`
	Assignee string `json:"assignee"`
	Priority string `json:"priority"`
	Search   string `json:"search"`
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// FilterPatch is a partial filter change. A non-nil field replaces the
// current value, so a pointer to "" clears that filter.
type FilterPatch struct {
	Status   *string `json:"status,omitempty"`
	Assignee *string `json:"assignee,omitempty"`
	Priority *string `json:"priority,omitempty"`
	Search   *string `json:"search,omitempty"`
}

// Merge returns f with every non-nil field of patch applied.
func (f Filters) Merge(patch FilterPatch) Filters {
	if patch.Status != nil {
		f.Status = *patch.Status
	}
	if patch.Assignee != nil {
		f.Assignee = *patch.Assignee
	}
	if patch.Priority != nil {
		f.Priority = *patch.Priority
	}
	if patch.Search != nil {
		f.Search = *patch.Search
	}
	return f
}

// Match reports whether t passes every set filter. Search is a
// case-insensitive substring match on title or description.
func (f Filters) Match(t *Task) bool {
	if f.Status != "" && string(t.Status) != f.Status {
		return false
	}
	if f.Assignee != "" && t.Assignee != f.Assignee {
		return false
	}
	if f.Priority != "" && string(t.Priority) != f.Priority {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		return strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q)
	}
	return true
}

// FilterTasks returns the tasks matching f, preserving order.
func FilterTasks(tasks []*Task, f Filters) []*Task {
	var out []*Task
	for _, t := range tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// TaskStats summarizes a task collection.
type TaskStats struct {
	Total          int `json:"total"`
	Todo           int `json:"todo"`
	InProgress     int `json:"inProgress"`
	Completed      int `json:"completed"`
	Overdue        int `json:"overdue"`
	CompletionRate int `json:"completionRate"` // percent, 0-100
}

// ComputeTaskStats counts tasks per status and overdue as of now.
func ComputeTaskStats(tasks []*Task, now time.Time) TaskStats {
	s := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case TaskStatusTodo:
			s.Todo++
		case TaskStatusInProgress:
			s.InProgress++
		case TaskStatusCompleted:
			s.Completed++
		}
		if t.IsOverdue(now) {
			s.Overdue++
		}
	}
	if s.Total > 0 {
		// Integer round half up of 100*completed/total.
		s.CompletionRate = (200*s.Completed + s.Total) / (2 * s.Total)
	}
	return s
}
