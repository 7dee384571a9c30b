package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNginx()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeCommands()
	if err := c.normalizeEngine(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("NPPP_CACHE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.CacheDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = DefaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(strings.TrimSpace(c.Paths.CacheDir)); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PIDFile) == "" {
		c.Paths.PIDFile = filepath.Join(c.Paths.StateDir, defaultPIDFileName)
	}
	if c.Paths.PIDFile, err = expandPath(c.Paths.PIDFile); err != nil {
		return fmt.Errorf("paths.pid_file: %w", err)
	}
	if c.Paths.LogFile, err = expandPath(strings.TrimSpace(c.Paths.LogFile)); err != nil {
		return fmt.Errorf("paths.log_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeNginx() {
	candidates := make([]string, 0, len(c.Nginx.ConfigCandidates))
	seen := make(map[string]struct{}, len(c.Nginx.ConfigCandidates))
	for _, candidate := range c.Nginx.ConfigCandidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, exists := seen[candidate]; exists {
			continue
		}
		seen[candidate] = struct{}{}
		candidates = append(candidates, candidate)
	}
	if len(candidates) == 0 {
		candidates = append(candidates, DefaultConfigCandidates...)
	}
	c.Nginx.ConfigCandidates = candidates
	c.Nginx.CacheKeyRegex = strings.TrimSpace(c.Nginx.CacheKeyRegex)
	c.Nginx.ServerProcessPattern = strings.TrimSpace(c.Nginx.ServerProcessPattern)
	if c.Nginx.ServerProcessPattern == "" {
		c.Nginx.ServerProcessPattern = defaultServerProcessPattern
	}
}

func (c *Config) normalizeCache() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if c.Cache.TTLDays <= 0 {
		c.Cache.TTLDays = defaultCacheTTLDays
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		switch c.Cache.Backend {
		case CacheBackendLevelDB:
			c.Cache.Path = filepath.Join(c.Paths.StateDir, "transients.ldb")
		default:
			c.Cache.Path = filepath.Join(c.Paths.StateDir, "transients.db")
		}
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeCommands() {
	c.Commands.Required = trimList(c.Commands.Required)
	c.Commands.Optional = trimList(c.Commands.Optional)
}

func (c *Config) normalizeEngine() error {
	if c.Engine.WalkTimeout <= 0 {
		c.Engine.WalkTimeout = defaultWalkTimeout
	}
	if c.Engine.CommandTimeout <= 0 {
		c.Engine.CommandTimeout = defaultCommandTimeout
	}
	c.Engine.ExpectedProcessNames = trimList(c.Engine.ExpectedProcessNames)
	if strings.TrimSpace(c.Engine.AppFile) == "" {
		return nil
	}
	var err error
	if c.Engine.AppFile, err = expandPath(strings.TrimSpace(c.Engine.AppFile)); err != nil {
		return fmt.Errorf("engine.app_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
