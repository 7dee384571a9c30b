// Package logging assembles structured slog loggers and formatting helpers used
// across nppp.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so preload runs can tag every line
// with their run identifier. A no-op logger is provided for tests and wiring
// code that cannot fail.
//
// Log output defaults to stderr; stdout is reserved for command results.
package logging
