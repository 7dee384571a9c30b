package procstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/fileutil"
)

// ErrLocked reports that another preload run holds the lock.
var ErrLocked = errors.New("preload already running")

// PIDLock owns the preload PID file for the duration of a run.
type PIDLock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes an exclusive lock on path+".lock" and writes pid to path.
// A pid of zero records the current process.
func AcquireLock(path string, pid int) (*PIDLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure pid directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire preload lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	if pid <= 0 {
		pid = os.Getpid()
	}
	if err := fileutil.WriteFileAtomic(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &PIDLock{path: path, lock: lock}, nil
}

// Update rewrites the PID file, used once the warmer child has started.
func (l *PIDLock) Update(pid int) error {
	return fileutil.WriteFileAtomic(l.path, []byte(strconv.Itoa(pid)+"\n"), 0o644)
}

// Path returns the PID file location.
func (l *PIDLock) Path() string {
	return l.path
}

// Release removes the PID file and drops the lock.
func (l *PIDLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	removeErr := fileutil.RemoveIfExists(l.path)
	unlockErr := l.lock.Unlock()
	l.lock = nil
	if removeErr != nil {
		return fmt.Errorf("remove pid file: %w", removeErr)
	}
	if unlockErr != nil {
		return fmt.Errorf("release preload lock: %w", unlockErr)
	}
	return nil
}
