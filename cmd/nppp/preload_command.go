package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/logging"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/procstate"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/status"
)

func newPreloadCommand(ctx *commandContext) *cobra.Command {
	preloadCmd := &cobra.Command{
		Use:   "preload",
		Short: "Inspect or run the cache preload process",
	}

	preloadCmd.AddCommand(newPreloadStatusCommand(ctx))
	preloadCmd.AddCommand(newPreloadRunCommand(ctx))

	return preloadCmd
}

func newPreloadStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether a preload process is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := ctx.aggregator()
			if err != nil {
				return err
			}
			code, pid := agg.PreloadStatus(cmd.Context(), nil)
			if asJSON {
				return writeJSON(cmd, struct {
					Status status.Code `json:"status"`
					PID    int         `json:"pid,omitempty"`
				}{code, pid})
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			switch code {
			case status.Progress:
				fmt.Fprintln(out, renderStatusLine("Preload", statusInfo, fmt.Sprintf("In progress (pid %d)", pid), colorize))
			case status.True:
				fmt.Fprintln(out, renderStatusLine("Preload", statusOK, "Ready", colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Preload", statusError, "Not ready (check cache path, permissions and wget)", colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newPreloadRunCommand(ctx *commandContext) *cobra.Command {
	var cpuLimit int

	cmd := &cobra.Command{
		Use:   "run -- <command> [args...]",
		Short: "Run a cache warmer while holding the preload PID file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			runCtx := logging.WithRunID(cmd.Context(), runID)
			logger = logging.WithContext(runCtx, logger).With(logging.String(logging.FieldComponent, "preload"))

			tracker := procstate.NewTracker(cfg.Paths.PIDFile, cfg.Engine.ExpectedProcessNames, logger)
			if !tracker.Recognizes(args[0]) {
				return fmt.Errorf("preload command %q is not listed in engine.expected_process_names; preload status would not report it", filepath.Base(args[0]))
			}

			lock, err := procstate.AcquireLock(cfg.Paths.PIDFile, 0)
			if err != nil {
				if errors.Is(err, procstate.ErrLocked) {
					return fmt.Errorf("preload already running (pid file %s)", cfg.Paths.PIDFile)
				}
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					logging.WarnWithContext(logger, "release preload lock", "preload_lock_release_failed",
						logging.Error(err),
						logging.String("pid_file", lock.Path()),
					)
				}
			}()

			signalCtx, stop := signal.NotifyContext(runCtx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			child := exec.CommandContext(signalCtx, args[0], args[1:]...) //nolint:gosec
			child.Stdout = cmd.OutOrStdout()
			child.Stderr = cmd.ErrOrStderr()
			if err := child.Start(); err != nil {
				return fmt.Errorf("start preload: %w", err)
			}
			if err := lock.Update(child.Process.Pid); err != nil {
				logging.WarnWithContext(logger, "record preload pid", "preload_pid_write_failed",
					logging.Error(err),
					logging.Int("pid", child.Process.Pid),
				)
			}
			logger.Info("preload started",
				logging.Int("pid", child.Process.Pid),
				logging.String("command", args[0]),
				logging.String("pid_file", lock.Path()),
			)
			stopLimiter := startCPULimiter(signalCtx, child.Process.Pid, cpuLimit, logger)
			defer stopLimiter()

			waitErr := child.Wait()
			if waitErr != nil {
				logging.WarnWithContext(logger, "preload finished with error", "preload_failed",
					logging.Error(waitErr),
					logging.String("command", args[0]),
				)
				return fmt.Errorf("preload: %w", waitErr)
			}
			logger.Info("preload finished")
			return nil
		},
	}

	cmd.Flags().IntVar(&cpuLimit, "cpu-limit", 0, "Limit preload CPU usage to this percentage with cpulimit")
	return cmd
}

// startCPULimiter attaches cpulimit to pid when a limit is requested and
// cpulimit is installed. The returned func stops the limiter.
func startCPULimiter(ctx context.Context, pid, limit int, logger *slog.Logger) func() {
	if limit <= 0 {
		return func() {}
	}
	if _, err := exec.LookPath("cpulimit"); err != nil {
		logging.WarnWithContext(logger, "cpulimit not installed; running without a cpu limit", "cpulimit_missing",
			logging.Int("limit", limit),
		)
		return func() {}
	}
	limiterCtx, cancel := context.WithCancel(ctx)
	limiter := exec.CommandContext(limiterCtx, "cpulimit", "-p", strconv.Itoa(pid), "-l", strconv.Itoa(limit)) //nolint:gosec
	if err := limiter.Start(); err != nil {
		cancel()
		logging.WarnWithContext(logger, "start cpulimit", "cpulimit_start_failed",
			logging.Error(err),
			logging.Int("pid", pid),
		)
		return func() {}
	}
	return func() {
		cancel()
		_ = limiter.Wait()
	}
}
