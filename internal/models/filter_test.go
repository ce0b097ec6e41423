package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFiltersMatch(t *testing.T) {
	task := &Task{Title: "Fix Login", Description: "crash on submit", Assignee: "ana", Priority: TaskPriorityHigh, Status: TaskStatusTodo}

	assert.True(t, Filters{}.Match(task))
	assert.True(t, Filters{Status: "todo", Priority: "high"}.Match(task))
	assert.False(t, Filters{Status: "completed"}.Match(task))
	assert.False(t, Filters{Assignee: "bo"}.Match(task))
	assert.True(t, Filters{Search: "login"}.Match(task))
	assert.True(t, Filters{Search: "SUBMIT"}.Match(task))
	assert.False(t, Filters{Search: "logout"}.Match(task))
}

func TestFiltersMerge(t *testing.T) {
	f := Filters{Status: "todo", Search: "x"}

	f = f.Merge(FilterPatch{Assignee: ptr("ana")})
	assert.Equal(t, Filters{Status: "todo", Assignee: "ana", Search: "x"}, f)

	f = f.Merge(FilterPatch{Status: ptr("")})
	assert.Equal(t, "", f.Status)
	assert.Equal(t, "ana", f.Assignee)
	assert.False(t, f.IsZero())
	assert.True(t, Filters{}.IsZero())
}

func TestFilterTasks_PreservesOrder(t *testing.T) {
	a := &Task{ID: "a", Title: "a", Status: TaskStatusTodo}
	b := &Task{ID: "b", Title: "b", Status: TaskStatusCompleted}
	c := &Task{ID: "c", Title: "c", Status: TaskStatusTodo}

	got := FilterTasks([]*Task{a, b, c}, Filters{Status: "todo"})
	assert.Equal(t, []*Task{a, c}, got)
}

func TestComputeTaskStats(t *testing.T) {
	yesterday := baseTime.Add(-24 * time.Hour)

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, TaskStats{}, ComputeTaskStats(nil, baseTime))
	})

	t.Run("mixed", func(t *testing.T) {
		tasks := []*Task{
			{Status: TaskStatusTodo, DueDate: &yesterday},
			{Status: TaskStatusInProgress},
			{Status: TaskStatusCompleted, DueDate: &yesterday},
		}
		got := ComputeTaskStats(tasks, baseTime)
		assert.Equal(t, TaskStats{Total: 3, Todo: 1, InProgress: 1, Completed: 1, Overdue: 1, CompletionRate: 33}, got)
	})

	t.Run("rounding", func(t *testing.T) {
		tasks := []*Task{
			{Status: TaskStatusCompleted},
			{Status: TaskStatusCompleted},
			{Status: TaskStatusTodo},
		}
		assert.Equal(t, 67, ComputeTaskStats(tasks, baseTime).CompletionRate)

		half := []*Task{{Status: TaskStatusCompleted}, {Status: TaskStatusTodo}}
		assert.Equal(t, 50, ComputeTaskStats(half, baseTime).CompletionRate)
	})

	t.Run("half boundary", func(t *testing.T) {
		tasks := make([]*Task, 40)
		for i := range tasks {
			status := TaskStatusTodo
			if i < 23 {
				status = TaskStatusCompleted
			}
			tasks[i] = &Task{Status: status}
		}
		assert.Equal(t, 58, ComputeTaskStats(tasks, baseTime).CompletionRate)
	})
}
