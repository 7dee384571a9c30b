// Package inspect isolates process-table scraping, command lookup and file
// ownership probes behind the Inspector interface.
//
// Shell is the production implementation; it shells out with a per-call
// timeout and treats a missing or failing command as empty output. Fake
// serves fixed tables to tests.
package inspect
