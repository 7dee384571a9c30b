// Package fileutil provides the filesystem abstraction used by the cache
// inventory and nginx config locator, plus small file helpers for the PID
// file writer.
package fileutil
