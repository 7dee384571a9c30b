// Package nginxconf locates the host nginx configuration and extracts the
// directives the status engine cares about: cache keys, cache paths and
// the worker user.
//
// Locator probes a fixed list of conventional nginx.conf paths. Parser reads
// a configuration file with comments removed and include directives expanded
// in place, so directive order matches what nginx itself sees.
package nginxconf
