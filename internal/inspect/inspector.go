package inspect

import (
	"context"
	"regexp"
)

// Process is one row of the process table.
type Process struct {
	PID     int
	User    string
	Command string
}

// Inspector exposes the host introspection the status engine needs.
type Inspector interface {
	// FindProcessesByNamePattern returns processes whose ps line matches pattern.
	FindProcessesByNamePattern(ctx context.Context, pattern *regexp.Regexp) ([]Process, error)
	// LookPath resolves name on the search path.
	LookPath(name string) (string, error)
	// CommandExists reports whether name resolves on the search path.
	CommandExists(name string) bool
	// FileOwner returns the username owning path.
	FileOwner(ctx context.Context, path string) (string, error)
	// Run executes name and returns its trimmed stdout.
	Run(ctx context.Context, name string, args ...string) (string, error)
}
