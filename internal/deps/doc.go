// Package deps reports whether the external executables the preload
// process relies on can be resolved on the search path.
package deps
