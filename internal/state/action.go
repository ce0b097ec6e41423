package state

import "github.com/joescharf/tm/internal/models"

// Action is a request to change the Store. The set of actions is closed:
// only the types in this file implement it.
type Action interface {
	actionName() string
}

// Reload re-reads the task collection from the repository.
type Reload struct{}

// CreateTask adds a task built from Input.
type CreateTask struct {
	Input models.TaskInput
}

// UpdateTask applies Update to the task with the given ID.
type UpdateTask struct {
	ID     string
	Update models.TaskUpdate
}

// DeleteTask removes the task with the given ID.
type DeleteTask struct {
	ID string
}

// SetFilters merges Patch into the current filters.
type SetFilters struct {
	Patch models.FilterPatch
}

// ClearFilters resets every filter.
type ClearFilters struct{}

func (Reload) actionName() string       { return "reload" }
func (CreateTask) actionName() string   { return "create_task" }
func (UpdateTask) actionName() string   { return "update_task" }
func (DeleteTask) actionName() string   { return "delete_task" }
func (SetFilters) actionName() string   { return "set_filters" }
func (ClearFilters) actionName() string { return "clear_filters" }
