// Package config loads, normalizes, and validates nppp configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the NPPP_CACHE_DIR environment
// fallback. The Config type centralizes every knob the status engine and CLI
// need: the nginx cache directory, preload PID file, nginx.conf candidates,
// transient cache backend, and probe timeouts.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
