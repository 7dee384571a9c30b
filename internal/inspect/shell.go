package inspect

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"os/user"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/logging"
)

// Executor abstracts command execution for Shell.
type Executor interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.Output()
}

// ErrNoOwner is returned when a file owner cannot be resolved to a name.
var ErrNoOwner = errors.New("file owner not determined")

// Shell implements Inspector with ps, ls and PATH lookups.
type Shell struct {
	Timeout  time.Duration
	Logger   *slog.Logger
	executor Executor
	lookPath func(string) (string, error)
	lookupID func(string) (*user.User, error)
}

// NewShell returns a Shell whose commands are bounded by timeout.
func NewShell(timeout time.Duration, logger *slog.Logger) *Shell {
	return &Shell{
		Timeout:  timeout,
		Logger:   logging.NewComponentLogger(logger, "inspect"),
		executor: commandExecutor{},
		lookPath: exec.LookPath,
		lookupID: user.LookupId,
	}
}

// Run executes name with the configured timeout. A missing binary, a
// non-zero exit or a timeout returns an error and empty output.
func (s *Shell) Run(ctx context.Context, name string, args ...string) (string, error) {
	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	output, err := s.executor.Output(runCtx, name, args...)
	if err != nil {
		s.logger().Debug("command failed",
			logging.String("command", name),
			logging.Error(err),
		)
		return "", fmt.Errorf("run %s: %w", name, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// FindProcessesByNamePattern lists processes via ps and keeps the rows
// where pattern matches the user or the command line.
func (s *Shell) FindProcessesByNamePattern(ctx context.Context, pattern *regexp.Regexp) ([]Process, error) {
	output, err := s.Run(ctx, "ps", "-eo", "user=,pid=,args=")
	if err != nil {
		return nil, err
	}
	return FilterProcesses(ParsePS(output), pattern), nil
}

// LookPath resolves name on the search path.
func (s *Shell) LookPath(name string) (string, error) {
	return s.lookPath(name)
}

// CommandExists reports whether name resolves on the search path.
func (s *Shell) CommandExists(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := s.lookPath(name)
	return err == nil
}

// FileOwner resolves the owner of path by uid, falling back to the owner
// column of ls -ld when the uid has no passwd entry.
func (s *Shell) FileOwner(ctx context.Context, path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if u, err := s.lookupID(strconv.FormatUint(uint64(st.Uid), 10)); err == nil && u.Username != "" {
		return u.Username, nil
	}
	output, err := s.Run(ctx, "ls", "-ld", path)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(output)
	if len(fields) < 3 || fields[2] == "" {
		return "", ErrNoOwner
	}
	return fields[2], nil
}

func (s *Shell) logger() *slog.Logger {
	if s.Logger == nil {
		return logging.NewNop()
	}
	return s.Logger
}

// ParsePS parses "user pid args" rows as printed by ps -eo user=,pid=,args=.
// Malformed rows are skipped.
func ParsePS(output string) []Process {
	var processes []Process
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		pid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		processes = append(processes, Process{
			PID:     pid,
			User:    fields[0],
			Command: strings.Join(fields[2:], " "),
		})
	}
	return processes
}

// FilterProcesses keeps the processes whose "user command" line matches
// pattern. A nil pattern keeps everything.
func FilterProcesses(processes []Process, pattern *regexp.Regexp) []Process {
	if pattern == nil {
		return processes
	}
	out := make([]Process, 0, len(processes))
	for _, proc := range processes {
		if pattern.MatchString(proc.User + " " + proc.Command) {
			out = append(out, proc)
		}
	}
	return out
}
