package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/status"
)

func TestCacheCountCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"cache", "count"}, env.configPath)
	if err != nil {
		t.Fatalf("cache count: %v", err)
	}
	if strings.TrimSpace(out) != "2" {
		t.Fatalf("expected 2 pages, got %q", out)
	}

	out, _, err = runCLI(t, []string{"cache", "count", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("cache count --json: %v", err)
	}
	var count status.PageCount
	if err := json.Unmarshal([]byte(out), &count); err != nil {
		t.Fatalf("decode count: %v", err)
	}
	if count.Count != 2 {
		t.Fatalf("expected count 2, got %#v", count)
	}
}

func TestCacheCountMissingDir(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Paths.CacheDir = env.baseDir + "/missing"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"cache", "count"}, env.configPath)
	if err != nil {
		t.Fatalf("cache count: %v", err)
	}
	if strings.TrimSpace(out) != status.NotFound.Label() {
		t.Fatalf("expected Not Found, got %q", out)
	}
}

func TestCacheURLsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"cache", "urls"}, env.configPath)
	if err != nil {
		t.Fatalf("cache urls: %v", err)
	}
	requireContains(t, out, "https://example.com/page")
	requireContains(t, out, "https://example.com/blog/")

	out, _, err = runCLI(t, []string{"cache", "urls", "--json", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("cache urls --json: %v", err)
	}
	var payload struct {
		Status  status.Code       `json:"status"`
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode urls: %v", err)
	}
	if payload.Status != status.Found || len(payload.Entries) != 1 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestCacheClearCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "[OK]")
	requireContains(t, out, status.MsgClearSuccess)
}
