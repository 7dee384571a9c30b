package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var cacheDirPattern = regexp.MustCompile(`^/(?:[a-zA-Z0-9_-]+(?:/[a-zA-Z0-9_-]+)+)/?$`)

var criticalDirectories = []string{
	"/bin", "/boot", "/etc", "/lib", "/lib64", "/media", "/proc",
	"/root", "/sbin", "/srv", "/sys", "/usr", "/home", "/mnt",
}

// ErrCriticalPath reports a cache directory that points into a system location.
var ErrCriticalPath = errors.New("cache directory is a critical system path")

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNginx(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		return errors.New("paths.cache_dir must be set")
	}
	if c.Paths.CacheDir == "/" {
		return errors.New("paths.cache_dir must not be the filesystem root")
	}
	if strings.TrimSpace(c.Paths.PIDFile) == "" {
		return errors.New("paths.pid_file must be set")
	}
	return nil
}

func (c *Config) validateNginx() error {
	if len(c.Nginx.ConfigCandidates) == 0 {
		return errors.New("nginx.config_candidates must include at least one path")
	}
	if _, err := regexp.Compile(c.Nginx.ServerProcessPattern); err != nil {
		return fmt.Errorf("nginx.server_process_pattern: %w", err)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendSQLite, CacheBackendLevelDB, CacheBackendMemory:
	default:
		return fmt.Errorf("cache.backend must be one of sqlite, leveldb, memory (got %q)", c.Cache.Backend)
	}
	if c.Cache.Backend != CacheBackendMemory && strings.TrimSpace(c.Cache.Path) == "" {
		return errors.New("cache.path must be set for persistent backends")
	}
	return ensurePositiveMap(map[string]int{
		"cache.ttl_days": c.Cache.TTLDays,
	})
}

func (c *Config) validateEngine() error {
	return ensurePositiveMap(map[string]int{
		"engine.walk_timeout":    c.Engine.WalkTimeout,
		"engine.command_timeout": c.Engine.CommandTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

// CheckCacheDirSafety applies the purge safety rules to the cache directory.
// The shipped placeholder is always accepted.
func (c *Config) CheckCacheDirSafety() error {
	dir := c.Paths.CacheDir
	if dir == DefaultCacheDir {
		return nil
	}
	for _, critical := range criticalDirectories {
		if strings.HasPrefix(dir, critical) {
			return fmt.Errorf("%w: %s", ErrCriticalPath, dir)
		}
	}
	if !cacheDirPattern.MatchString(dir) {
		return fmt.Errorf("%w: %s", ErrCriticalPath, dir)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
