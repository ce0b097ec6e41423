package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/tm/internal/actions"
	"github.com/joescharf/tm/internal/app"
	"github.com/joescharf/tm/internal/models"
	"github.com/joescharf/tm/internal/output"
)

var (
	taskTitle    string
	taskDesc     string
	taskAssignee string
	taskPriority string
	taskStatus   string
	taskDue      string
	taskSearch   string
	taskClearDue bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
	Long:  "Create, list, update and delete team tasks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskListRun()
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskAddRun()
	},
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long:    "List tasks, optionally filtered by status, assignee, priority or a search term.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskListRun()
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskShowRun(args[0])
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskUpdateRun(cmd, args[0])
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id> <todo|in-progress|completed>",
	Short: "Change a task's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskStatusRun(args[0], args[1])
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:     "delete <task-id>...",
	Aliases: []string{"rm"},
	Short:   "Delete one or more tasks",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskDeleteRun(args)
	},
}

var taskBatchStatusCmd = &cobra.Command{
	Use:   "batch-status <todo|in-progress|completed> <task-id>...",
	Short: "Set the status of several tasks",
	Long: `Set the status of several tasks in one go.

Tasks are updated one at a time. A failure does not undo earlier updates;
failed IDs are listed at the end.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskBatchStatusRun(args[0], args[1:])
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&taskTitle, "title", "", "Task title (required)")
	taskAddCmd.Flags().StringVar(&taskDesc, "desc", "", "Task description")
	taskAddCmd.Flags().StringVar(&taskAssignee, "assignee", "", "Team member doing the work")
	taskAddCmd.Flags().StringVar(&taskPriority, "priority", "", "Priority: low, medium, high (default medium)")
	taskAddCmd.Flags().StringVar(&taskDue, "due", "", "Due date (YYYY-MM-DD or RFC 3339)")
	_ = taskAddCmd.MarkFlagRequired("title")

	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status: todo, in-progress, completed")
	taskListCmd.Flags().StringVar(&taskAssignee, "assignee", "", "Filter by assignee")
	taskListCmd.Flags().StringVar(&taskPriority, "priority", "", "Filter by priority")
	taskListCmd.Flags().StringVar(&taskSearch, "search", "", "Search title and description")

	taskUpdateCmd.Flags().StringVar(&taskTitle, "title", "", "New title")
	taskUpdateCmd.Flags().StringVar(&taskDesc, "desc", "", "New description")
	taskUpdateCmd.Flags().StringVar(&taskAssignee, "assignee", "", "New assignee")
	taskUpdateCmd.Flags().StringVar(&taskPriority, "priority", "", "New priority")
	taskUpdateCmd.Flags().StringVar(&taskStatus, "status", "", "New status")
	taskUpdateCmd.Flags().StringVar(&taskDue, "due", "", "New due date")
	taskUpdateCmd.Flags().BoolVar(&taskClearDue, "clear-due", false, "Remove the due date")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskBatchStatusCmd)
	rootCmd.AddCommand(taskCmd)
}

func taskAddRun() error {
	in := models.TaskInput{
		Title:       taskTitle,
		Description: taskDesc,
		Assignee:    taskAssignee,
		Priority:    models.TaskPriority(taskPriority),
	}
	if taskDue != "" {
		due, err := models.ParseDueDate(taskDue)
		if err != nil {
			return err
		}
		in.DueDate = &due
	}

	if dryRun {
		ui.DryRunMsg("Would add task: %s [%s]", taskTitle, taskPriority)
		return nil
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	task, err := a.Tasks.CreateTask(context.Background(), in)
	if err != nil {
		return err
	}

	ui.Success("Created task %s: %s", output.Cyan(shortID(task.ID)), task.Title)
	return nil
}

func taskListRun() error {
	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if taskStatus != "" && !models.TaskStatus(taskStatus).Valid() {
		return fmt.Errorf("invalid status %q (use todo, in-progress or completed)", taskStatus)
	}
	if err := a.Tasks.SetFilters(ctx, models.FilterPatch{
		Status:   &taskStatus,
		Assignee: &taskAssignee,
		Priority: &taskPriority,
		Search:   &taskSearch,
	}); err != nil {
		return err
	}

	tasks := a.Tasks.GetFilteredTasks()
	if len(tasks) == 0 {
		ui.Info("No tasks found.")
		return nil
	}
	renderTasks(tasks, time.Now())
	return nil
}

func renderTasks(tasks []*models.Task, now time.Time) {
	table := ui.Table([]string{"ID", "Title", "Assignee", "Priority", "Status", "Due"})
	for _, t := range tasks {
		_ = table.Append([]string{
			shortID(t.ID),
			t.Title,
			orDash(t.Assignee),
			output.PriorityColor(string(t.Priority)),
			output.StatusColor(string(t.Status)),
			dueString(t, now),
		})
	}
	_ = table.Render()
}

func taskShowRun(ref string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	task, err := findTask(a, ref)
	if err != nil {
		return err
	}

	now := time.Now()
	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(shortID(task.ID)), task.Title)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(task.Status)))
	fmt.Fprintf(ui.Out, "  Priority:   %s\n", output.PriorityColor(string(task.Priority)))
	fmt.Fprintf(ui.Out, "  Assignee:   %s\n", orDash(task.Assignee))
	if task.Description != "" {
		fmt.Fprintf(ui.Out, "  Desc:       %s\n", task.Description)
	}
	fmt.Fprintf(ui.Out, "  Due:        %s\n", dueString(task, now))
	fmt.Fprintf(ui.Out, "  Created:    %s\n", task.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Updated:    %s\n", task.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Full ID:    %s\n", task.ID)
	return nil
}

func taskUpdateRun(cmd *cobra.Command, ref string) error {
	var u models.TaskUpdate
	changed := false
	flags := cmd.Flags()

	if flags.Changed("title") {
		u.Title = &taskTitle
		changed = true
	}
	if flags.Changed("desc") {
		u.Description = &taskDesc
		changed = true
	}
	if flags.Changed("assignee") {
		u.Assignee = &taskAssignee
		changed = true
	}
	if flags.Changed("priority") {
		p := models.TaskPriority(taskPriority)
		u.Priority = &p
		changed = true
	}
	if flags.Changed("status") {
		s := models.TaskStatus(taskStatus)
		u.Status = &s
		changed = true
	}
	if flags.Changed("due") {
		due, err := models.ParseDueDate(taskDue)
		if err != nil {
			return err
		}
		u.DueDate = &due
		changed = true
	}
	if taskClearDue {
		u.ClearDueDate = true
		changed = true
	}
	if !changed {
		return fmt.Errorf("no updates specified (use --title, --desc, --assignee, --priority, --status, --due or --clear-due)")
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	task, err := findTask(a, ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would update task %s", shortID(task.ID))
		return nil
	}

	updated, err := a.Tasks.UpdateTask(context.Background(), task.ID, u)
	if err != nil {
		return err
	}
	ui.Success("Updated task %s: %s", output.Cyan(shortID(updated.ID)), updated.Title)
	return nil
}

func taskStatusRun(ref, status string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	task, err := findTask(a, ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would set task %s to %s", shortID(task.ID), status)
		return nil
	}

	updated, err := a.Tasks.UpdateTaskStatus(context.Background(), task.ID, models.TaskStatus(status))
	if err != nil {
		return err
	}
	ui.Success("Task %s is now %s", output.Cyan(shortID(updated.ID)), output.StatusColor(string(updated.Status)))
	return nil
}

func taskDeleteRun(refs []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}
	ids, err := resolveTaskIDs(a, refs)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete %d task(s)", len(ids))
		return nil
	}

	ctx := context.Background()
	if len(ids) == 1 {
		task, err := a.Tasks.DeleteTask(ctx, ids[0])
		if err != nil {
			return err
		}
		ui.Success("Deleted task %s: %s", output.Cyan(shortID(task.ID)), task.Title)
		return nil
	}

	res, err := a.Tasks.BatchDeleteTasks(ctx, ids)
	if err != nil {
		return err
	}
	return reportBatch("Deleted", res)
}

func taskBatchStatusRun(status string, refs []string) error {
	st := models.TaskStatus(status)
	if !st.Valid() {
		return fmt.Errorf("invalid status %q (use todo, in-progress or completed)", status)
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	ids, err := resolveTaskIDs(a, refs)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would set %d task(s) to %s", len(ids), status)
		return nil
	}

	res, err := a.Tasks.BatchUpdateTasks(context.Background(), ids, models.TaskUpdate{Status: &st})
	if err != nil {
		return err
	}
	return reportBatch("Updated", res)
}

func reportBatch(verb string, res actions.BatchResult) error {
	if len(res.Succeeded) > 0 {
		ui.Success("%s %d task(s)", verb, len(res.Succeeded))
	}
	for _, f := range res.Failed {
		ui.Error("%s: %s", shortID(f.ID), f.Error)
	}
	if !res.OK() {
		return fmt.Errorf("%d of %d task(s) failed", len(res.Failed), len(res.Failed)+len(res.Succeeded))
	}
	return nil
}

// resolveTaskIDs expands short IDs. An unresolvable reference is passed
// through unchanged so the batch reports it as a per-item failure.
func resolveTaskIDs(a *app.App, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		task, err := findTask(a, ref)
		switch {
		case err == nil:
			ids = append(ids, task.ID)
		case errors.Is(err, errAmbiguousID):
			return nil, err
		default:
			ids = append(ids, ref)
		}
	}
	return ids, nil
}

var errAmbiguousID = errors.New("ambiguous task ID")

// findTask finds a task by full ID or unique prefix.
func findTask(a *app.App, ref string) (*models.Task, error) {
	if task, ok := a.Tasks.GetTaskByID(ref); ok {
		return task, nil
	}

	upper := strings.ToUpper(ref)
	var matches []*models.Task
	for _, t := range a.Tasks.GetAllTasks() {
		if strings.HasPrefix(t.ID, upper) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("task not found: %s", ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w %s: matches %d tasks", errAmbiguousID, ref, len(matches))
	}
}

// dueString renders the due date in UTC, the zone ParseDueDate stores it in.
func dueString(t *models.Task, now time.Time) string {
	if t.DueDate == nil {
		return "-"
	}
	return output.Overdue(t.DueDate.UTC().Format(models.DateLayout), t.IsOverdue(now))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// shortID returns a truncated ULID for display (first 12 chars).
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
