package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the filesystem locations the engine inspects or owns.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	PIDFile  string `toml:"pid_file"`
	StateDir string `toml:"state_dir"`
	LogFile  string `toml:"log_file"`
}

// Nginx contains settings for locating and interpreting the nginx configuration.
type Nginx struct {
	ConfigCandidates     []string `toml:"config_candidates"`
	CacheKeyRegex        string   `toml:"cache_key_regex"` // base64 or plain; empty uses the built-in pattern
	ServerProcessPattern string   `toml:"server_process_pattern"`
}

// Cache contains configuration for the expensive-check cache.
type Cache struct {
	Backend string `toml:"backend"` // "sqlite", "leveldb" or "memory"
	Path    string `toml:"path"`
	TTLDays int    `toml:"ttl_days"`
}

// Commands lists the external executables the preload process relies on.
type Commands struct {
	Required []string `toml:"required"`
	Optional []string `toml:"optional"`
}

// Engine contains timeouts and probes used while building a status report.
type Engine struct {
	WalkTimeout          int      `toml:"walk_timeout"`
	CommandTimeout       int      `toml:"command_timeout"`
	AppFile              string   `toml:"app_file"`
	ExpectedProcessNames []string `toml:"expected_process_names"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for nppp.
//
// Configuration sections by subsystem:
//   - Paths: nginx cache directory, preload PID file, state directory
//   - Nginx: config discovery candidates and cache key pattern override
//   - Cache: backend and lifetime of memoized status checks
//   - Commands: required and optional executables
//   - Engine: walk/command deadlines and identity probes
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Nginx    Nginx    `toml:"nginx"`
	Cache    Cache    `toml:"cache"`
	Commands Commands `toml:"commands"`
	Engine   Engine   `toml:"engine"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/nppp/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("nppp.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories nppp owns. The nginx cache
// directory is never created here: its absence is a reportable status.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, filepath.Dir(c.Paths.PIDFile)}
	if c.Cache.Backend != CacheBackendMemory {
		dirs = append(dirs, filepath.Dir(c.Cache.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CacheTTL returns the lifetime of memoized status checks.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLDays) * 24 * time.Hour
}

// WalkTimeout bounds a single cache directory traversal.
func (c *Config) WalkTimeout() time.Duration {
	return time.Duration(c.Engine.WalkTimeout) * time.Second
}

// CommandTimeout bounds a single shell probe.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Engine.CommandTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
