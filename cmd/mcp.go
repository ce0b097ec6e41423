package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joescharf/tm/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an assistant read and change tasks natively. Configure it with:

  {
    "mcpServers": {
      "tm": { "command": "tm", "args": ["mcp"] }
    }
  }

Available tools: tm_list_tasks, tm_create_task, tm_update_task,
tm_delete_task, tm_task_stats, tm_list_members`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(cmd *cobra.Command) error {
	// stdout carries the protocol, so library logs go to stderr only.
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	a, err := getAppWithLogger(logger)
	if err != nil {
		return err
	}
	srv := mcp.NewServer(a.Tasks, a.Members, buildVersion)
	return srv.ServeStdio(cmd.Context())
}
