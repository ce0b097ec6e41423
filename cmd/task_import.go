package cmd

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/tm/internal/app"
	"github.com/joescharf/tm/internal/llm"
	"github.com/joescharf/tm/internal/models"
)

var (
	importAssignee string
	importPreview  bool
	importNoLLM    bool
)

var taskImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import tasks from a markdown file",
	Long: `Import tasks from meeting notes or a markdown checklist.

With ANTHROPIC_API_KEY (or anthropic.api_key in config) set, an LLM extracts
titles, assignees, priorities and due dates. Otherwise, or with --no-llm,
numbered and bulleted items are imported directly: a "## <name>" heading sets
the assignee, "due YYYY-MM-DD" sets the due date and checked boxes ("[x]")
are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskImportRun(args[0])
	},
}

func init() {
	taskImportCmd.Flags().StringVar(&importAssignee, "assignee", "", "Assign every imported task to this person")
	taskImportCmd.Flags().BoolVar(&importPreview, "preview", false, "Show extracted tasks without creating them")
	taskImportCmd.Flags().BoolVar(&importNoLLM, "no-llm", false, "Use the plain markdown parser")
	taskCmd.AddCommand(taskImportCmd)
}

func taskImportRun(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("file is empty: %s", file)
	}

	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()

	members := a.Members.ListMembers(ctx)
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}

	var extracted []llm.ExtractedTask
	client := newLLMClient()
	switch {
	case importNoLLM:
		extracted = parseMarkdownTasks(content)
	case client == nil:
		ui.Warning("ANTHROPIC_API_KEY not set, using the plain markdown parser")
		extracted = parseMarkdownTasks(content)
	default:
		ui.Info("Extracting tasks with LLM (%s)...", viper.GetString("anthropic.model"))
		extracted, err = client.ExtractTasks(ctx, content, names)
		if err != nil {
			return fmt.Errorf("extract tasks: %w", err)
		}
	}

	if len(extracted) == 0 {
		ui.Info("No tasks found in file.")
		return nil
	}

	for i := range extracted {
		if importAssignee != "" {
			extracted[i].Assignee = importAssignee
		}
		extracted[i].Assignee = matchMember(extracted[i].Assignee, names)
	}

	table := ui.Table([]string{"#", "Title", "Assignee", "Priority", "Due"})
	for i, e := range extracted {
		_ = table.Append([]string{
			fmt.Sprintf("%d", i+1),
			e.Title,
			orDash(e.Assignee),
			e.Priority,
			orDash(e.DueDate),
		})
	}
	_ = table.Render()

	if importPreview || dryRun {
		ui.DryRunMsg("Would create %d tasks", len(extracted))
		return nil
	}

	return createExtractedTasks(ctx, a, extracted)
}

// createExtractedTasks creates each task, skipping those that fail validation.
func createExtractedTasks(ctx context.Context, a *app.App, extracted []llm.ExtractedTask) error {
	created, skipped := 0, 0
	for _, e := range extracted {
		in := models.TaskInput{
			Title:       e.Title,
			Description: e.Description,
			Assignee:    e.Assignee,
			Priority:    models.TaskPriority(e.Priority),
		}
		if !in.Priority.Valid() {
			in.Priority = models.TaskPriorityMedium
		}
		if e.DueDate != "" {
			due, err := models.ParseDueDate(e.DueDate)
			if err != nil {
				ui.Warning("Ignoring due date of %q: %v", e.Title, err)
			} else {
				in.DueDate = &due
			}
		}

		if _, err := a.Tasks.CreateTask(ctx, in); err != nil {
			ui.Warning("Skipping task %q: %v", e.Title, err)
			skipped++
			continue
		}
		created++
	}

	ui.Success("Created %d tasks", created)
	if skipped > 0 {
		ui.Warning("Skipped %d tasks", skipped)
	}
	return nil
}

// matchMember returns the known member name equal to name ignoring case,
// or name unchanged.
func matchMember(name string, members []string) string {
	name = strings.TrimSpace(name)
	for _, m := range members {
		if strings.EqualFold(m, name) {
			return m
		}
	}
	return name
}

var dueRe = regexp.MustCompile(`(?i)\(?\bdue:?\s*(\d{4}-\d{2}-\d{2})\)?`)

// parseMarkdownTasks extracts numbered and bulleted items from markdown.
func parseMarkdownTasks(content string) []llm.ExtractedTask {
	var tasks []llm.ExtractedTask
	assignee := ""

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "## ") {
			assignee = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			continue
		}
		if strings.HasPrefix(line, "# ") {
			assignee = ""
			continue
		}

		title, ok := listItem(line)
		if !ok {
			continue
		}

		lower := strings.ToLower(title)
		if strings.HasPrefix(lower, "[x]") {
			continue
		}
		title = strings.TrimSpace(strings.TrimPrefix(title, "[ ]"))

		due := ""
		if m := dueRe.FindStringSubmatch(title); m != nil {
			due = m[1]
			title = strings.TrimSpace(dueRe.ReplaceAllString(title, ""))
		}
		if title == "" {
			continue
		}

		tasks = append(tasks, llm.ExtractedTask{
			Title:    title,
			Assignee: assignee,
			Priority: classifyTaskPriority(title),
			DueDate:  due,
		})
	}
	return tasks
}

// listItem returns the text of a "- ", "* " or "N. " list line.
func listItem(line string) (string, bool) {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:]), true
	}
	for i, c := range line {
		if c == '.' && i > 0 && i < 4 {
			rest := strings.TrimSpace(line[i+1:])
			return rest, rest != ""
		}
		if c < '0' || c > '9' {
			break
		}
	}
	return "", false
}

// classifyTaskPriority infers a priority from keywords. High keywords are
// checked before low ones; the default is medium.
func classifyTaskPriority(title string) string {
	lower := strings.ToLower(title)

	highKeywords := []string{
		"critical", "urgent", "asap", "blocker", "blocking",
		"security", "outage", "production down", "p0", "p1",
	}
	for _, kw := range highKeywords {
		if strings.Contains(lower, kw) {
			return "high"
		}
	}

	lowKeywords := []string{
		"minor", "nice to have", "someday", "cosmetic", "trivial",
		"low priority", "when possible",
	}
	for _, kw := range lowKeywords {
		if strings.Contains(lower, kw) {
			return "low"
		}
	}

	return "medium"
}
