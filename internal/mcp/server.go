package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/tm/internal/actions"
	"github.com/joescharf/tm/internal/models"
)

// Server exposes the task and member action layers as MCP tools.
type Server struct {
	tasks   *actions.Tasks
	members *actions.Members
	version string
	now     func() time.Time
}

// NewServer creates the MCP server wrapper.
func NewServer(tasks *actions.Tasks, members *actions.Members, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{
		tasks:   tasks,
		members: members,
		version: version,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("tm", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listTasksTool())
	srv.AddTool(s.createTaskTool())
	srv.AddTool(s.updateTaskTool())
	srv.AddTool(s.deleteTaskTool())
	srv.AddTool(s.taskStatsTool())
	srv.AddTool(s.listMembersTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

type taskOut struct {
	models.PersistedTask
	Overdue bool `json:"overdue"`
}

func (s *Server) taskOut(t *models.Task) taskOut {
	return taskOut{PersistedTask: t.Persisted(), Overdue: t.IsOverdue(s.now())}
}

func jsonResult(what string, v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal %s: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// tm_list_tasks
func (s *Server) listTasksTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tm_list_tasks",
		mcp.WithDescription("List tasks, optionally filtered. Returns a JSON array of tasks with id, title, description, assignee, priority (low/medium/high), status (todo/in-progress/completed), dueDate, createdAt, updatedAt and overdue."),
		mcp.WithString("status", mcp.Description("Status filter: todo, in-progress, completed")),
		mcp.WithString("assignee", mcp.Description("Exact assignee name")),
		mcp.WithString("priority", mcp.Description("Priority filter: low, medium, high")),
		mcp.WithString("search", mcp.Description("Case-insensitive text matched against title and description")),
	)
	return tool, s.handleListTasks
}

func (s *Server) handleListTasks(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := models.Filters{
		Status:   request.GetString("status", ""),
		Assignee: request.GetString("assignee", ""),
		Priority: request.GetString("priority", ""),
		Search:   request.GetString("search", ""),
	}
	tasks := models.FilterTasks(s.tasks.GetAllTasks(), f)
	out := make([]taskOut, len(tasks))
	for i, t := range tasks {
		out[i] = s.taskOut(t)
	}
	return jsonResult("tasks", out)
}

// tm_create_task
func (s *Server) createTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tm_create_task",
		mcp.WithDescription("Create a new task. Returns the created task as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title (max 100 characters)")),
		mcp.WithString("description", mcp.Description("Task description (max 500 characters)")),
		mcp.WithString("assignee", mcp.Description("Name of the team member doing the work")),
		mcp.WithString("priority", mcp.Description("Priority: low, medium, high (default: medium)")),
		mcp.WithString("due_date", mcp.Description("Due date as YYYY-MM-DD or RFC 3339")),
	)
	return tool, s.handleCreateTask
}

func (s *Server) handleCreateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}

	in := models.TaskInput{
		Title:       title,
		Description: request.GetString("description", ""),
		Assignee:    request.GetString("assignee", ""),
		Priority:    models.TaskPriority(request.GetString("priority", "")),
	}
	if due := request.GetString("due_date", ""); due != "" {
		d, err := models.ParseDueDate(due)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.DueDate = &d
	}

	task, err := s.tasks.CreateTask(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create task: %v", err)), nil
	}
	return jsonResult("task", s.taskOut(task))
}

// tm_update_task
func (s *Server) updateTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tm_update_task",
		mcp.WithDescription("Update an existing task. Provide the task ID and at least one field to change. Returns the updated task as JSON."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("status", mcp.Description("New status: todo, in-progress, completed")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("assignee", mcp.Description("New assignee")),
		mcp.WithString("priority", mcp.Description("New priority: low, medium, high")),
		mcp.WithString("due_date", mcp.Description("New due date as YYYY-MM-DD or RFC 3339")),
	)
	return tool, s.handleUpdateTask
}

func (s *Server) handleUpdateTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: task_id"), nil
	}

	var u models.TaskUpdate
	updated := false
	if v := request.GetString("status", ""); v != "" {
		st := models.TaskStatus(v)
		u.Status = &st
		updated = true
	}
	if v := request.GetString("title", ""); v != "" {
		u.Title = &v
		updated = true
	}
	if v := request.GetString("description", ""); v != "" {
		u.Description = &v
		updated = true
	}
	if v := request.GetString("assignee", ""); v != "" {
		u.Assignee = &v
		updated = true
	}
	if v := request.GetString("priority", ""); v != "" {
		p := models.TaskPriority(v)
		u.Priority = &p
		updated = true
	}
	if v := request.GetString("due_date", ""); v != "" {
		d, err := models.ParseDueDate(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		u.DueDate = &d
		updated = true
	}
	if !updated {
		return mcp.NewToolResultError("no fields provided to update; specify at least one of: status, title, description, assignee, priority, due_date"), nil
	}

	task, err := s.tasks.UpdateTask(ctx, id, u)
	if err != nil {
		if actions.IsNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("task not found: %s", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to update task: %v", err)), nil
	}
	return jsonResult("task", s.taskOut(task))
}

// tm_delete_task
func (s *Server) deleteTaskTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tm_delete_task",
		mcp.WithDescription("Permanently delete a task."),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Task ID")),
	)
	return tool, s.handleDeleteTask
}

func (s *Server) handleDeleteTask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("task_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: task_id"), nil
	}
	task, err := s.tasks.DeleteTask(ctx, id)
	if err != nil {
		if actions.IsNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("task not found: %s", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete task: %v", err)), nil
	}
	return jsonResult("result", map[string]string{"deleted": task.ID, "title": task.Title})
}

// tm_task_stats
func (s *Server) taskStatsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tm_task_stats",
		mcp.WithDescription("Get task statistics: total, todo, inProgress, completed, overdue and completionRate (percent)."),
	)
	return tool, s.handleTaskStats
}

func (s *Server) handleTaskStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult("statistics", s.tasks.GetTaskStatistics())
}

// tm_list_members
func (s *Server) listMembersTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("tm_list_members",
		mcp.WithDescription("List active team members with id, name, email, role (member/lead/manager) and joinedAt."),
	)
	return tool, s.handleListMembers
}

func (s *Server) handleListMembers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	members := s.members.ListMembers(ctx)
	out := make([]models.PersistedMember, len(members))
	for i, m := range members {
		out[i] = m.Persisted()
	}
	return jsonResult("members", out)
}
