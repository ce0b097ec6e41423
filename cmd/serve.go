package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/joescharf/tm/internal/api"
	"github.com/joescharf/tm/internal/daemon"
	"github.com/joescharf/tm/internal/scheduler"
	"github.com/joescharf/tm/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server in the foreground.

The server exposes tasks and members under /api/v1, runs the overdue sweep
on the sweep.schedule cron spec and, with telemetry.enabled, exports traces,
metrics and logs over OTLP gRPC. Use 'tm serve start' to run it in the
background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the API server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background API server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.PersistentFlags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("server.port", serveCmd.PersistentFlags().Lookup("port"))

	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "tm-serve.pid"))
}

func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "tm-serve.log")
}

func serveRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	startupLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger, shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     viper.GetBool("telemetry.enabled"),
		Endpoint:    viper.GetString("telemetry.endpoint"),
		ServiceName: viper.GetString("telemetry.service_name"),
		Environment: viper.GetString("telemetry.environment"),
	}, startupLogger)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			startupLogger.Error("failed to shutdown telemetry", slog.Any("error", err))
		}
	}()

	pf := pidFile()
	if err := pf.Acquire(os.Getpid()); err != nil {
		return err
	}
	defer func() { _ = pf.Release(os.Getpid()) }()

	a, err := getAppWithLogger(logger)
	if err != nil {
		return err
	}

	metrics, err := telemetry.NewMetrics(otel.Meter("github.com/joescharf/tm"), func() (int64, int64) {
		s := a.Tasks.GetTaskStatistics()
		return int64(s.Total), int64(s.Overdue)
	})
	if err != nil {
		return err
	}

	sweeper := scheduler.NewSweeper(a.Tasks, logger, nil)
	sweeper.OnSweep = func(ctx context.Context, _ scheduler.SweepReport) {
		metrics.OverdueSweeps.Add(ctx, 1)
	}
	sched := scheduler.New(time.Local, logger)
	if _, err := sched.Schedule(viper.GetString("sweep.schedule"), sweeper.Job(ctx)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", viper.GetInt("server.port")),
		Handler:      api.NewServer(a.Tasks, a.Members, logger).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
	return nil
}

func serveStartRun() error {
	pf := pidFile()
	if pid, ok := pf.IsRunning(); ok {
		return fmt.Errorf("server already running (PID %d)", pid)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}
	args := []string{"serve", "--port", fmt.Sprintf("%d", viper.GetInt("server.port"))}
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}

	if dryRun {
		ui.DryRunMsg("Would start %s %v", exe, args)
		return nil
	}

	logPath := serveLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	pid := child.Process.Pid
	_ = child.Process.Release()

	ui.Success("Server started (PID %d) on port %d", pid, viper.GetInt("server.port"))
	ui.Info("Logs: %s", logPath)
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	if dryRun {
		ui.DryRunMsg("Would stop server in %s", pf.Path)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pf.Stop(ctx, sigTERM(), sigKILL(), 100*time.Millisecond); err != nil {
		return err
	}
	ui.Success("Server stopped")
	return nil
}

func serveStatusRun() error {
	pid, ok := pidFile().IsRunning()
	if !ok {
		ui.Info("Server not running")
		return nil
	}
	ui.Success("Server running (PID %d)", pid)
	ui.Info("Logs: %s", serveLogPath())
	return nil
}
