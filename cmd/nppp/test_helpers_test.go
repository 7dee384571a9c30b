package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/config"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/inspect"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/testsupport"
)

const testNginxConf = `user www-data;
http {
    fastcgi_cache_path /var/cache/nginx levels=1:2 keys_zone=site:100m;
    fastcgi_cache_key "$scheme$request_method$host$request_uri";
}
`

type cliTestEnv struct {
	cfg        *config.Config
	inspector  *inspect.Fake
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	opts = append([]testsupport.ConfigOption{testsupport.WithNginxConfig(testNginxConf)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("NPPP_CACHE_DIR", "")

	testsupport.WriteCacheEntry(t, cfg.Paths.CacheDir, "a/1/one", testsupport.CacheEntry{Key: "httpsGETexample.com/page"})
	testsupport.WriteCacheEntry(t, cfg.Paths.CacheDir, "b/2/two", testsupport.CacheEntry{Key: "httpsGETexample.com/blog/"})

	configPath := filepath.Join(base, "nppp.toml")
	writeTestConfig(t, configPath, cfg)

	fake := &inspect.Fake{
		Processes: []inspect.Process{
			{PID: 1, User: "root", Command: "nginx: master process"},
			{PID: 2, User: "www-data", Command: "nginx: worker process"},
		},
		Commands: map[string]string{"wget": "/usr/bin/wget"},
		Outputs:  map[string]string{"sh -c echo Test": "Test"},
	}
	previous := newInspector
	newInspector = func(*config.Config, *slog.Logger) inspect.Inspector { return fake }
	t.Cleanup(func() { newInspector = previous })

	return &cliTestEnv{
		cfg:        cfg,
		inspector:  fake,
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd, ctx := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := execute(cmd, ctx)
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
