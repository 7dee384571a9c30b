package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The cache directory is created empty, the transient store is in-memory and
// no nginx.conf candidate exists until WithNginxConfig is applied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.PIDFile = filepath.Join(base, "state", "cache_preload.pid")
	cfgVal.Nginx.ConfigCandidates = []string{filepath.Join(base, "nginx", "nginx.conf")}
	cfgVal.Cache.Backend = config.CacheBackendMemory
	cfgVal.Cache.Path = filepath.Join(base, "state", "transients.db")

	if err := os.MkdirAll(cfgVal.Paths.CacheDir, 0o755); err != nil {
		t.Fatalf("mkdir cache dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCacheBackend selects the transient store backend.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
		if backend == config.CacheBackendLevelDB {
			b.cfg.Cache.Path = filepath.Join(b.baseDir, "state", "transients.ldb")
		}
	}
}

// WithoutCacheDir removes the cache directory so status checks report it missing.
func WithoutCacheDir() ConfigOption {
	return func(b *configBuilder) {
		if err := os.RemoveAll(b.cfg.Paths.CacheDir); err != nil {
			b.t.Fatalf("remove cache dir: %v", err)
		}
	}
}

// WithNginxConfig writes content to the configured nginx.conf candidate.
func WithNginxConfig(content string) ConfigOption {
	return func(b *configBuilder) {
		path := b.cfg.Nginx.ConfigCandidates[0]
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			b.t.Fatalf("mkdir nginx dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			b.t.Fatalf("write nginx config: %v", err)
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, wget is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"wget"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
