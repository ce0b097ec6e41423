package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/tm/internal/app"
	"github.com/joescharf/tm/internal/output"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui       *output.UI
	appState *app.App

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "tm",
	Short: "Team Task Manager - track tasks and team members",
	Long: `tm tracks a team's tasks and members in a local SQLite database.
It offers a CLI dashboard, an HTTP API with a periodic overdue sweep,
and MCP tools for assistants.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	closeApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return statsRun()
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/tm/config.yaml)")
}

func initConfig() {
	// .env in the working directory is optional.
	_ = godotenv.Load()

	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	bindEnv()

	dir, _ := configDirFunc()
	setDefaults(dir)

	_ = viper.ReadInConfig()
}

// bindEnv maps TM_ variables onto config keys, e.g. TM_SERVER_PORT to
// server.port.
func bindEnv() {
	viper.SetEnvPrefix("TM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setDefaults registers every config key with its default, rooted at dir.
func setDefaults(dir string) {
	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db_path", filepath.Join(dir, "tm.db"))
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("batch.reload_delay", "500ms")
	viper.SetDefault("sweep.schedule", "@every 5m")
	viper.SetDefault("weather.delay", "1s")
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.endpoint", "localhost:4317")
	viper.SetDefault("telemetry.service_name", "tm")
	viper.SetDefault("telemetry.environment", "development")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// The app is opened lazily so config and version work without a db.
}

// cliLogger keeps library logging quiet unless --verbose is set.
func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// getApp returns the shared app, opening the database on first call.
func getApp() (*app.App, error) {
	return getAppWithLogger(cliLogger())
}

func getAppWithLogger(logger *slog.Logger) (*app.App, error) {
	if appState != nil {
		return appState, nil
	}

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbPath := viper.GetString("db_path")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	a, err := app.New(ctx, app.Config{
		DBPath:      dbPath,
		ReloadDelay: viper.GetDuration("batch.reload_delay"),
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	appState = a
	return appState, nil
}

func closeApp() {
	if appState != nil {
		_ = appState.Close()
		appState = nil
	}
}
