// Package procstate answers whether the cache preload process is running.
//
// The preload process records its PID in a lock file. Tracker reads that file
// and probes the PID with signal 0, tolerating stale files left by a crashed
// run and files deleted mid-read. AcquireLock is the writer side used by
// `nppp preload run`: it serializes runs with an flock and owns the PID file
// for the lifetime of the run.
package procstate
