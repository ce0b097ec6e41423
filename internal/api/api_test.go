package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tm/internal/actions"
	"github.com/joescharf/tm/internal/app"
	"github.com/joescharf/tm/internal/models"
)

func setupTestServer(t *testing.T) (*Server, *app.App) {
	t.Helper()
	a, err := app.New(context.Background(), app.Config{DBPath: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return NewServer(a.Tasks, a.Members, nil), a
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := setupTestServer(t)
	w := do(t, srv.Router(), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestListTasks_Empty(t *testing.T) {
	srv, _ := setupTestServer(t)
	w := do(t, srv.Router(), "GET", "/api/v1/tasks", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]taskResponse](t, w))
}

func TestTaskCRUD_API(t *testing.T) {
	srv, a := setupTestServer(t)
	router := srv.Router()

	// Create
	w := do(t, router, "POST", "/api/v1/tasks", `{"title":"Write release notes","priority":"high","assignee":"ana","dueDate":"2026-12-01"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[taskResponse](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "todo", created.Status)
	assert.Equal(t, "high", created.Priority)
	require.NotNil(t, created.DueDate)
	assert.False(t, created.Overdue)

	// Get
	w = do(t, router, "GET", "/api/v1/tasks/"+created.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	// Update
	w = do(t, router, "PUT", "/api/v1/tasks/"+created.ID, `{"title":"Write the release notes","clearDueDate":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[taskResponse](t, w)
	assert.Equal(t, "Write the release notes", updated.Title)
	assert.Nil(t, updated.DueDate)

	// Status
	w = do(t, router, "PUT", "/api/v1/tasks/"+created.ID+"/status", `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode[taskResponse](t, w).Status)

	got, ok := a.Store.Task(created.ID)
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)

	// Delete
	w = do(t, router, "DELETE", "/api/v1/tasks/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, "GET", "/api/v1/tasks/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateTask_ValidationError(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	w := do(t, router, "POST", "/api/v1/tasks", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "title")

	w = do(t, router, "POST", "/api/v1/tasks", `{"title":"ok","dueDate":"soon"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "POST", "/api/v1/tasks", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTask_NotFound(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	w := do(t, router, "PUT", "/api/v1/tasks/nope", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, router, "DELETE", "/api/v1/tasks/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, router, "PUT", "/api/v1/tasks/nope/status", `{"status":"nearly"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTasks_Filters(t *testing.T) {
	srv, a := setupTestServer(t)
	ctx := context.Background()
	_, err := a.Tasks.CreateTask(ctx, models.TaskInput{Title: "Quarterly report", Assignee: "ana"})
	require.NoError(t, err)
	_, err = a.Tasks.CreateTask(ctx, models.TaskInput{Title: "Fix login", Assignee: "bo", Priority: models.TaskPriorityHigh})
	require.NoError(t, err)

	router := srv.Router()
	w := do(t, router, "GET", "/api/v1/tasks?assignee=bo", "")
	require.Equal(t, http.StatusOK, w.Code)
	tasks := decode[[]taskResponse](t, w)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Fix login", tasks[0].Title)

	w = do(t, router, "GET", "/api/v1/tasks?search=REPORT", "")
	assert.Len(t, decode[[]taskResponse](t, w), 1)

	assert.True(t, a.Store.Filters().IsZero(), "query filters do not touch shared store filters")
}

func TestTaskStats_API(t *testing.T) {
	srv, a := setupTestServer(t)
	ctx := context.Background()
	task, err := a.Tasks.CreateTask(ctx, models.TaskInput{Title: "a"})
	require.NoError(t, err)
	_, err = a.Tasks.CreateTask(ctx, models.TaskInput{Title: "b"})
	require.NoError(t, err)
	_, err = a.Tasks.UpdateTaskStatus(ctx, task.ID, models.TaskStatusCompleted)
	require.NoError(t, err)

	w := do(t, srv.Router(), "GET", "/api/v1/tasks/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[models.TaskStats](t, w)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 50, stats.CompletionRate)
}

func TestBulkOperations_API(t *testing.T) {
	srv, a := setupTestServer(t)
	ctx := context.Background()
	x, err := a.Tasks.CreateTask(ctx, models.TaskInput{Title: "x"})
	require.NoError(t, err)
	y, err := a.Tasks.CreateTask(ctx, models.TaskInput{Title: "y"})
	require.NoError(t, err)
	router := srv.Router()

	w := do(t, router, "POST", "/api/v1/tasks/bulk-update", `{"ids":["`+x.ID+`","missing"],"status":"in-progress"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[actions.BatchResult](t, w)
	assert.Equal(t, []string{x.ID}, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "missing", res.Failed[0].ID)

	got, _ := a.Store.Task(x.ID)
	assert.Equal(t, models.TaskStatusInProgress, got.Status)

	w = do(t, router, "POST", "/api/v1/tasks/bulk-update", `{"ids":[],"status":"completed"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "POST", "/api/v1/tasks/bulk-delete", `{"ids":["`+x.ID+`","`+y.ID+`"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[actions.BatchResult](t, w).OK())
	assert.Empty(t, a.Tasks.GetAllTasks())
}

func TestMemberCRUD_API(t *testing.T) {
	srv, _ := setupTestServer(t)
	router := srv.Router()

	w := do(t, router, "POST", "/api/v1/members", `{"name":"Ana","email":"ana@example.com","role":"Lead"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ana := decode[models.PersistedMember](t, w)
	assert.Equal(t, "lead", ana.Role)
	assert.True(t, ana.IsActive)

	w = do(t, router, "POST", "/api/v1/members", `{"name":"Other","email":"ana@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "PUT", "/api/v1/members/"+ana.ID, `{"role":"manager"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "manager", decode[models.PersistedMember](t, w).Role)

	w = do(t, router, "GET", "/api/v1/members", "")
	assert.Len(t, decode[[]models.PersistedMember](t, w), 1)

	w = do(t, router, "DELETE", "/api/v1/members/"+ana.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, "GET", "/api/v1/members", "")
	assert.Empty(t, decode[[]models.PersistedMember](t, w))

	w = do(t, router, "GET", "/api/v1/members/"+ana.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.PersistedMember](t, w).IsActive)

	w = do(t, router, "GET", "/api/v1/members/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	srv, _ := setupTestServer(t)
	w := do(t, srv.Router(), "OPTIONS", "/api/v1/tasks", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
