package preflight

import (
	"fmt"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/procstate"
)

// CheckPreloadProcess reports whether a preload process currently holds the
// PID file. An idle preload is not a failure.
func CheckPreloadProcess(tracker *procstate.Tracker) Result {
	const name = "Preload process"
	if tracker == nil {
		return Result{Name: name, Passed: true, Detail: "Unknown"}
	}
	if pid, ok := tracker.ActivePID(); ok {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("running (pid %d)", pid)}
	}
	return Result{Name: name, Passed: true, Detail: "idle"}
}
