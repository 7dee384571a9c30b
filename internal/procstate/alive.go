package procstate

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// procRoot is swapped in tests.
var procRoot = "/proc"

// IsAlive reports whether pid names a live process. Probe failures are
// reported as not alive.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return true
	case errors.Is(err, unix.EPERM):
		// Owned by another user; only trust it when the process table agrees.
		_, statErr := os.Stat(procPath(pid))
		return statErr == nil
	default:
		return false
	}
}

// ProcessName returns the short command name of pid from /proc. The second
// return value is false when the name cannot be read.
func ProcessName(pid int) (string, bool) {
	if pid <= 0 {
		return "", false
	}
	data, err := os.ReadFile(procPath(pid) + "/comm")
	if err != nil {
		return "", false
	}
	name := strings.TrimSpace(string(data))
	return name, name != ""
}

func procPath(pid int) string {
	return procRoot + "/" + strconv.Itoa(pid)
}
