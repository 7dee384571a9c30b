package inspect

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Fake is an Inspector backed by fixed tables.
type Fake struct {
	Processes []Process
	// Commands maps command names to their resolved paths.
	Commands map[string]string
	// Owners maps file paths to owning usernames.
	Owners map[string]string
	// Outputs maps "name arg..." to the stdout Run returns.
	Outputs map[string]string
	// ProcessErr is returned by FindProcessesByNamePattern when set.
	ProcessErr error
}

var _ Inspector = (*Fake)(nil)

// FindProcessesByNamePattern filters the fixed process table.
func (f *Fake) FindProcessesByNamePattern(_ context.Context, pattern *regexp.Regexp) ([]Process, error) {
	if f.ProcessErr != nil {
		return nil, f.ProcessErr
	}
	return FilterProcesses(f.Processes, pattern), nil
}

// LookPath resolves name from Commands.
func (f *Fake) LookPath(name string) (string, error) {
	if path, ok := f.Commands[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
}

// CommandExists reports whether name is in Commands.
func (f *Fake) CommandExists(name string) bool {
	_, ok := f.Commands[name]
	return ok
}

// FileOwner returns the owner recorded for path.
func (f *Fake) FileOwner(_ context.Context, path string) (string, error) {
	if owner, ok := f.Owners[path]; ok {
		return owner, nil
	}
	return "", ErrNoOwner
}

// Run returns the output recorded for the joined command line.
func (f *Fake) Run(_ context.Context, name string, args ...string) (string, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	if output, ok := f.Outputs[line]; ok {
		return output, nil
	}
	return "", fmt.Errorf("run %s: %w", name, exec.ErrNotFound)
}
