package models

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// TaskStatus represents the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskStatuses lists every valid status in display order.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// ErrInvalidTask is returned when a task fails validation.
var ErrInvalidTask = errors.New("invalid task")

// Task is a unit of work assigned to a team member.
type Task struct {
	ID          string
	Title       string
	Description string
	Assignee    string // free-text name, optionally matching a TeamMember
	Priority    TaskPriority
	Status      TaskStatus
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskInput carries the caller-supplied fields for a new task.
type TaskInput struct {
	Title       string
	Description string
	Assignee    string
	Priority    TaskPriority
	DueDate     *time.Time
}

// TaskUpdate is a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Title        *string
	Description  *string
	Assignee     *string
	Priority     *TaskPriority
	Status       *TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
}

// NewTask builds a task with defaults applied. CreatedAt and UpdatedAt are both now.
func NewTask(in TaskInput, now time.Time) *Task {
	priority := in.Priority
	if !priority.Valid() {
		priority = TaskPriorityMedium
	}
	return &Task{
		ID:          NewID(),
		Title:       in.Title,
		Description: in.Description,
		Assignee:    in.Assignee,
		Priority:    priority,
		Status:      TaskStatusTodo,
		DueDate:     copyTime(in.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks the required title and the field length limits.
func (t *Task) Validate() error {
	switch {
	case t.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	case utf8.RuneCountInString(t.Title) > MaxTitleLength:
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidTask, MaxTitleLength)
	case utf8.RuneCountInString(t.Description) > MaxDescriptionLength:
		return fmt.Errorf("%w: description must be at most %d characters", ErrInvalidTask, MaxDescriptionLength)
	}
	return nil
}

// Apply merges the non-nil fields of u into t and advances UpdatedAt.
// Invalid priority or status values are ignored.
func (t *Task) Apply(u TaskUpdate, now time.Time) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Assignee != nil {
		t.Assignee = *u.Assignee
	}
	if u.Priority != nil && u.Priority.Valid() {
		t.Priority = *u.Priority
	}
	if u.Status != nil && u.Status.Valid() {
		t.Status = *u.Status
	}
	if u.ClearDueDate {
		t.DueDate = nil
	} else if u.DueDate != nil {
		t.DueDate = copyTime(u.DueDate)
	}
	t.touch(now)
}

// UpdateStatus moves the task to status. It returns false and leaves the
// task untouched when status is not a known value.
func (t *Task) UpdateStatus(status TaskStatus, now time.Time) bool {
	if !status.Valid() {
		return false
	}
	t.Status = status
	t.touch(now)
	return true
}

// IsOverdue reports whether the due date has passed and the task is not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskStatusCompleted {
		return false
	}
	return now.After(*t.DueDate)
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	c := *t
	c.DueDate = copyTime(t.DueDate)
	return &c
}

// touch sets UpdatedAt to now, nudging it forward if the clock has not moved.
func (t *Task) touch(now time.Time) {
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Nanosecond)
	}
	t.UpdatedAt = now
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
