// Package main hosts the nppp CLI entrypoint and command graph.
//
// The Cobra-based command tree renders the FastCGI cache status report,
// inspects and clears the memoized status checks, wraps a cache preload run
// in the PID lock, and watches nginx configuration for changes. It
// centralizes configuration resolution, transient store access and logging
// setup so subcommands only format results.
//
// Keep this package lean: checks belong in the internal packages, commands
// here only surface them.
package main
