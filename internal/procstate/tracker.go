package procstate

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/logging"
)

// ErrInvalidPID reports lock file content that is not a positive integer.
var ErrInvalidPID = errors.New("lock file does not contain a valid pid")

// LockRecord is the parsed content of the preload PID file.
type LockRecord struct {
	PID  int
	Path string
}

// Tracker observes the preload process through its PID file.
type Tracker struct {
	LockPath string
	// ExpectedNames restricts liveness to processes whose /proc comm matches
	// one of these names. Empty disables the identity check.
	ExpectedNames []string
	Logger        *slog.Logger
}

// NewTracker returns a tracker for the PID file at lockPath.
func NewTracker(lockPath string, expectedNames []string, logger *slog.Logger) *Tracker {
	return &Tracker{
		LockPath:      lockPath,
		ExpectedNames: expectedNames,
		Logger:        logging.NewComponentLogger(logger, "procstate"),
	}
}

// Read parses the PID file.
func (t *Tracker) Read() (LockRecord, error) {
	data, err := os.ReadFile(t.LockPath)
	if err != nil {
		return LockRecord{}, fmt.Errorf("read pid file %q: %w", t.LockPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return LockRecord{}, fmt.Errorf("%w: %q", ErrInvalidPID, t.LockPath)
	}
	return LockRecord{PID: pid, Path: t.LockPath}, nil
}

// PreloadInProgress reports whether the PID file names a live preload
// process. Any read or parse failure means no preload is running.
func (t *Tracker) PreloadInProgress() bool {
	_, ok := t.ActivePID()
	return ok
}

// ActivePID returns the PID of the running preload process.
func (t *Tracker) ActivePID() (int, bool) {
	record, err := t.Read()
	if err != nil {
		t.logger().Debug("preload pid file unavailable", logging.Error(err))
		return 0, false
	}
	if !IsAlive(record.PID) {
		t.logger().Debug("stale preload pid file", logging.Int("pid", record.PID))
		return 0, false
	}
	if !t.matchesExpected(record.PID) {
		t.logger().Debug("preload pid belongs to another program", logging.Int("pid", record.PID))
		return 0, false
	}
	return record.PID, true
}

func (t *Tracker) matchesExpected(pid int) bool {
	if len(t.ExpectedNames) == 0 {
		return true
	}
	name, ok := ProcessName(pid)
	if !ok {
		return true
	}
	return t.nameAllowed(name)
}

// Recognizes reports whether a process started from command would count as
// the preload process. command may be a path; the kernel comm name is its
// base name truncated to 15 bytes.
func (t *Tracker) Recognizes(command string) bool {
	if len(t.ExpectedNames) == 0 {
		return true
	}
	return t.nameAllowed(commName(filepath.Base(command)))
}

func (t *Tracker) nameAllowed(name string) bool {
	for _, expected := range t.ExpectedNames {
		if name == commName(expected) {
			return true
		}
	}
	return false
}

const commNameMax = 15

func commName(name string) string {
	if len(name) > commNameMax {
		return name[:commNameMax]
	}
	return name
}

func (t *Tracker) logger() *slog.Logger {
	if t.Logger == nil {
		return logging.NewNop()
	}
	return t.Logger
}
