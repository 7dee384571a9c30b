package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external command the preload process relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Path        string `json:"path,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// LookPathFunc resolves a command name to an executable path.
type LookPathFunc func(name string) (string, error)

// CheckBinaries evaluates the provided requirements against PATH.
func CheckBinaries(requirements []Requirement) []Status {
	return CheckBinariesWith(exec.LookPath, requirements)
}

// CheckBinariesWith evaluates the provided requirements using lookPath.
func CheckBinariesWith(lookPath LookPathFunc, requirements []Requirement) []Status {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := lookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = resolved
		results = append(results, status)
	}
	return results
}

// Find returns the status for command, if present in statuses.
func Find(statuses []Status, command string) (Status, bool) {
	for _, status := range statuses {
		if status.Command == command {
			return status, true
		}
	}
	return Status{}, false
}
