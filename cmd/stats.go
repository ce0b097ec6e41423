package cmd

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/tm/internal/models"
	"github.com/joescharf/tm/internal/output"
)

// recentCount is how many tasks the dashboard lists.
const recentCount = 5

var statsCmd = &cobra.Command{
	Use:     "stats",
	Aliases: []string{"dashboard"},
	Short:   "Show the team dashboard",
	Long:    "Show task statistics, the most recently created tasks and the active team size.",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statsRun()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func statsRun() error {
	a, err := getApp()
	if err != nil {
		return err
	}
	ctx := context.Background()
	now := time.Now()

	stats := a.Tasks.GetTaskStatistics()
	members := a.Members.ListMembers(ctx)

	fmt.Fprintln(ui.Out, output.Cyan("Team Dashboard"))
	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"Total", "To Do", "In Progress", "Completed", "Overdue", "Done", "Members"})
	_ = table.Append([]string{
		fmt.Sprintf("%d", stats.Total),
		fmt.Sprintf("%d", stats.Todo),
		fmt.Sprintf("%d", stats.InProgress),
		fmt.Sprintf("%d", stats.Completed),
		output.Overdue(fmt.Sprintf("%d", stats.Overdue), stats.Overdue > 0),
		output.RateColor(stats.CompletionRate),
		fmt.Sprintf("%d", len(members)),
	})
	_ = table.Render()

	if msg := a.Tasks.Error(); msg != "" {
		ui.Warning("%s", msg)
	}

	recent := recentTasks(a.Tasks.GetAllTasks(), recentCount)
	fmt.Fprintln(ui.Out)
	if len(recent) == 0 {
		ui.Info("No tasks yet. Use 'tm task add --title <title>' to create one.")
		return nil
	}
	fmt.Fprintln(ui.Out, output.Cyan("Recent Tasks"))
	renderTasks(recent, now)
	return nil
}

// recentTasks returns up to n tasks, newest first.
func recentTasks(tasks []*models.Task, n int) []*models.Task {
	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, func(a, b *models.Task) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
