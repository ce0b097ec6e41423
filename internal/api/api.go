package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joescharf/tm/internal/actions"
	"github.com/joescharf/tm/internal/models"
)

// Server provides the REST API handlers.
type Server struct {
	tasks   *actions.Tasks
	members *actions.Members
	logger  *slog.Logger
	now     func() time.Time
}

// NewServer creates a new API server. A nil logger uses slog.Default().
func NewServer(tasks *actions.Tasks, members *actions.Members, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		tasks:   tasks,
		members: members,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Router returns an http.Handler for the API routes, instrumented with
// OpenTelemetry. Health checks are not traced.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.listTasks)
			r.Post("/", s.createTask)
			r.Get("/stats", s.taskStats)
			r.Post("/bulk-update", s.bulkUpdateTasks)
			r.Post("/bulk-delete", s.bulkDeleteTasks)
			r.Get("/{id}", s.getTask)
			r.Put("/{id}", s.updateTask)
			r.Delete("/{id}", s.deleteTask)
			r.Put("/{id}/status", s.updateTaskStatus)
		})
		r.Route("/members", func(r chi.Router) {
			r.Get("/", s.listMembers)
			r.Post("/", s.createMember)
			r.Get("/{id}", s.getMember)
			r.Put("/{id}", s.updateMember)
			r.Delete("/{id}", s.deleteMember)
		})
	})

	return otelhttp.NewHandler(r, "tm-api",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeActionError maps action layer errors onto status codes.
func (s *Server) writeActionError(w http.ResponseWriter, r *http.Request, err error) {
	var fe actions.FieldErrors
	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "fields": fe})
	case errors.Is(err, actions.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case actions.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Tasks ---

// taskResponse is the wire form of a task.
type taskResponse struct {
	models.PersistedTask
	Overdue bool `json:"overdue"`
}

func (s *Server) toTaskResponse(t *models.Task) taskResponse {
	return taskResponse{PersistedTask: t.Persisted(), Overdue: t.IsOverdue(s.now())}
}

func (s *Server) toTaskResponses(tasks []*models.Task) []taskResponse {
	out := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = s.toTaskResponse(t)
	}
	return out
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Assignee    string `json:"assignee"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
}

type updateTaskRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Assignee     *string `json:"assignee"`
	Priority     *string `json:"priority"`
	Status       *string `json:"status"`
	DueDate      *string `json:"dueDate"`
	ClearDueDate bool    `json:"clearDueDate"`
}

func (req updateTaskRequest) toUpdate() (models.TaskUpdate, error) {
	u := models.TaskUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Assignee:     req.Assignee,
		ClearDueDate: req.ClearDueDate,
	}
	if req.Priority != nil {
		p := models.TaskPriority(*req.Priority)
		u.Priority = &p
	}
	if req.Status != nil {
		st := models.TaskStatus(*req.Status)
		u.Status = &st
	}
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := models.ParseDueDate(*req.DueDate)
		if err != nil {
			return u, actions.FieldErrors{"dueDate": err.Error()}
		}
		u.DueDate = &d
	}
	return u, nil
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.Filters{
		Status:   q.Get("status"),
		Assignee: q.Get("assignee"),
		Priority: q.Get("priority"),
		Search:   q.Get("search"),
	}
	tasks := models.FilterTasks(s.tasks.GetAllTasks(), f)
	writeJSON(w, http.StatusOK, s.toTaskResponses(tasks))
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	in := models.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Assignee:    req.Assignee,
		Priority:    models.TaskPriority(req.Priority),
	}
	if req.DueDate != "" {
		d, err := models.ParseDueDate(req.DueDate)
		if err != nil {
			s.writeActionError(w, r, actions.FieldErrors{"dueDate": err.Error()})
			return
		}
		in.DueDate = &d
	}

	task, err := s.tasks.CreateTask(r.Context(), in)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toTaskResponse(task))
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, ok := s.tasks.GetTaskByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, s.toTaskResponse(task))
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u, err := req.toUpdate()
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	task, err := s.tasks.UpdateTask(r.Context(), id, u)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toTaskResponse(task))
}

func (s *Server) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	task, err := s.tasks.UpdateTaskStatus(r.Context(), id, models.TaskStatus(req.Status))
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toTaskResponse(task))
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.tasks.DeleteTask(r.Context(), id); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) taskStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tasks.GetTaskStatistics())
}

func (s *Server) bulkUpdateTasks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
		updateTaskRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u, err := req.toUpdate()
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	res, err := s.tasks.BatchUpdateTasks(r.Context(), req.IDs, u)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) bulkDeleteTasks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	res, err := s.tasks.BatchDeleteTasks(r.Context(), req.IDs)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Members ---

type memberRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func toMemberResponses(members []*models.TeamMember) []models.PersistedMember {
	out := make([]models.PersistedMember, len(members))
	for i, m := range members {
		out[i] = m.Persisted()
	}
	return out
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toMemberResponses(s.members.ListMembers(r.Context())))
}

func (s *Server) createMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	in := models.MemberInput{}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Email != nil {
		in.Email = *req.Email
	}
	if req.Role != nil {
		in.Role = models.MemberRole(strings.ToLower(*req.Role))
	}
	m, err := s.members.CreateMember(r.Context(), in)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m.Persisted())
}

func (s *Server) getMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.members.GetMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Persisted())
}

func (s *Server) updateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u := models.MemberUpdate{Name: req.Name, Email: req.Email}
	if req.Role != nil {
		role := models.MemberRole(strings.ToLower(*req.Role))
		u.Role = &role
	}
	m, err := s.members.UpdateMember(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		s.writeActionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m.Persisted())
}

func (s *Server) deleteMember(w http.ResponseWriter, r *http.Request) {
	if _, err := s.members.DeleteMember(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeActionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
