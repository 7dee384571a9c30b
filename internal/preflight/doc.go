// Package preflight provides readiness checks for the paths, commands and
// shell access the preload process depends on.
//
// These checks run in two contexts:
//   - The status aggregator calls CheckShellExec and CheckCommands to fill
//     the shell and command rows of a report.
//   - The CLI "nppp config validate" command calls RunAll and prints every
//     result, failing when a required check does not pass.
package preflight
