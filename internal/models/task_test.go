package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestNewTask_Defaults(t *testing.T) {
	task := NewTask(TaskInput{Title: "Write docs"}, baseTime)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, TaskStatusTodo, task.Status)
	assert.Equal(t, TaskPriorityMedium, task.Priority)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestNewTask_UnknownPriorityFallsBack(t *testing.T) {
	task := NewTask(TaskInput{Title: "x", Priority: "urgent"}, baseTime)
	assert.Equal(t, TaskPriorityMedium, task.Priority)
}

func TestNewTask_UniqueIDs(t *testing.T) {
	a := NewTask(TaskInput{Title: "a"}, baseTime)
	b := NewTask(TaskInput{Title: "b"}, baseTime)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr string
	}{
		{"ok", Task{Title: "fine"}, ""},
		{"missing title", Task{}, "title is required"},
		{"long title", Task{Title: strings.Repeat("a", MaxTitleLength+1)}, "title must be at most"},
		{"max title", Task{Title: strings.Repeat("a", MaxTitleLength)}, ""},
		{"long description", Task{Title: "t", Description: strings.Repeat("d", MaxDescriptionLength+1)}, "description must be at most"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTask)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTaskApply_IgnoresNilAndInvalid(t *testing.T) {
	task := NewTask(TaskInput{Title: "orig", Description: "desc", Priority: TaskPriorityLow}, baseTime)

	task.Apply(TaskUpdate{
		Title:    ptr("new"),
		Priority: ptr(TaskPriority("bogus")),
		Status:   ptr(TaskStatus("archived")),
	}, baseTime.Add(time.Minute))

	assert.Equal(t, "new", task.Title)
	assert.Equal(t, "desc", task.Description)
	assert.Equal(t, TaskPriorityLow, task.Priority)
	assert.Equal(t, TaskStatusTodo, task.Status)
	assert.Equal(t, baseTime.Add(time.Minute), task.UpdatedAt)
}

func TestTaskApply_DueDate(t *testing.T) {
	due := baseTime.Add(48 * time.Hour)
	task := NewTask(TaskInput{Title: "t"}, baseTime)

	task.Apply(TaskUpdate{DueDate: &due}, baseTime)
	require.NotNil(t, task.DueDate)
	assert.True(t, task.DueDate.Equal(due))

	due = due.Add(time.Hour)
	assert.False(t, task.DueDate.Equal(due), "task must not alias the caller's time")

	task.Apply(TaskUpdate{ClearDueDate: true}, baseTime)
	assert.Nil(t, task.DueDate)
}

func TestTaskApply_UpdatedAtAlwaysAdvances(t *testing.T) {
	task := NewTask(TaskInput{Title: "t"}, baseTime)

	task.Apply(TaskUpdate{}, baseTime)
	assert.True(t, task.UpdatedAt.After(task.CreatedAt))

	prev := task.UpdatedAt
	task.Apply(TaskUpdate{}, baseTime.Add(-time.Hour))
	assert.True(t, task.UpdatedAt.After(prev))
}

func TestTaskUpdateStatus(t *testing.T) {
	task := NewTask(TaskInput{Title: "t"}, baseTime)

	ok := task.UpdateStatus("done", baseTime.Add(time.Minute))
	assert.False(t, ok)
	assert.Equal(t, TaskStatusTodo, task.Status)
	assert.Equal(t, baseTime, task.UpdatedAt)

	ok = task.UpdateStatus(TaskStatusInProgress, baseTime.Add(time.Minute))
	assert.True(t, ok)
	assert.Equal(t, TaskStatusInProgress, task.Status)
	assert.Equal(t, baseTime.Add(time.Minute), task.UpdatedAt)
}

func TestTaskIsOverdue(t *testing.T) {
	yesterday := baseTime.Add(-24 * time.Hour)
	tomorrow := baseTime.Add(24 * time.Hour)

	assert.False(t, NewTask(TaskInput{Title: "no due"}, baseTime).IsOverdue(baseTime))
	assert.False(t, NewTask(TaskInput{Title: "future", DueDate: &tomorrow}, baseTime).IsOverdue(baseTime))

	past := NewTask(TaskInput{Title: "past", DueDate: &yesterday}, baseTime)
	assert.True(t, past.IsOverdue(baseTime))

	past.Apply(TaskUpdate{Status: ptr(TaskStatusCompleted)}, baseTime)
	assert.False(t, past.IsOverdue(baseTime), "completed tasks are never overdue")
}

func TestTaskClone(t *testing.T) {
	due := baseTime
	task := NewTask(TaskInput{Title: "t", DueDate: &due}, baseTime)
	c := task.Clone()
	c.Title = "changed"
	*c.DueDate = baseTime.Add(time.Hour)

	assert.Equal(t, "t", task.Title)
	assert.True(t, task.DueDate.Equal(baseTime))
}

func TestTaskPersistedRoundTrip(t *testing.T) {
	due := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	orig := NewTask(TaskInput{Title: "ship", Description: "release", Assignee: "ana", Priority: TaskPriorityHigh, DueDate: &due}, now)
	orig.UpdateStatus(TaskStatusInProgress, now.Add(1500*time.Nanosecond))

	data, err := json.Marshal([]PersistedTask{orig.Persisted()})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dueDate":"2026-10-20T00:00:00Z"`)
	assert.Contains(t, string(data), `"createdAt"`)

	var decoded []PersistedTask
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	got := TaskFromPersisted(decoded[0])

	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.Title, got.Title)
	assert.Equal(t, orig.Description, got.Description)
	assert.Equal(t, orig.Assignee, got.Assignee)
	assert.Equal(t, orig.Priority, got.Priority)
	assert.Equal(t, orig.Status, got.Status)
	require.NotNil(t, got.DueDate)
	assert.True(t, orig.DueDate.Equal(*got.DueDate))
	assert.True(t, orig.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, orig.UpdatedAt.Equal(got.UpdatedAt))
}

func TestTaskFromPersisted_NormalizesEnums(t *testing.T) {
	got := TaskFromPersisted(PersistedTask{ID: "x", Title: "t", Status: "weird", Priority: ""})
	assert.Equal(t, TaskStatusTodo, got.Status)
	assert.Equal(t, TaskPriorityMedium, got.Priority)
}
