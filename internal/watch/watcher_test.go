package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeConf(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestNewRequiresPaths(t *testing.T) {
	if _, err := New(nil, 0, nil); !errors.Is(err, ErrNoPaths) {
		t.Fatalf("expected ErrNoPaths, got %v", err)
	}
}

func TestNewMissingDirectory(t *testing.T) {
	w, err := New([]string{"/nonexistent/path/that/does/not/exist/nginx.conf"}, 0, nil)
	if err == nil {
		w.Stop()
		t.Fatal("expected error for missing directory")
	}
}

func TestRelevant(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "nginx.conf")
	writeConf(t, conf, "user nginx;\n")
	w, err := New([]string{conf}, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	tests := []struct {
		name string
		want bool
	}{
		{conf, true},
		{filepath.Join(dir, "conf.d", "a.conf"), true},
		{filepath.Join(dir, "sites-enabled", "example"), true},
		{filepath.Join(dir, "sites-enabled", "example.com"), true},
		{filepath.Join(dir, "conf.d"), true},
		{filepath.Join(dir, ".nginx.conf.swp"), false},
		{filepath.Join(dir, "nginx.conf~"), false},
		{filepath.Join(dir, "conf.d", "cache.conf.swp"), false},
		{filepath.Join(dir, ".git", "HEAD"), false},
		{dir, false},
		{filepath.Join(filepath.Dir(dir), "elsewhere.conf"), false},
	}
	for _, tt := range tests {
		if got := w.Relevant(tt.name); got != tt.want {
			t.Fatalf("Relevant(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWatcherSignalsOnConfigChange(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "nginx.conf")
	writeConf(t, conf, "user nginx;\n")

	w, err := New([]string{conf}, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	writeConf(t, conf, "user www-data;\n")

	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config change event")
	}
}

func TestWatcherSeesNewIncludeDirectory(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "nginx.conf")
	writeConf(t, conf, "include conf.d/*.conf;\n")

	w, err := New([]string{conf}, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	if err := os.MkdirAll(filepath.Join(dir, "conf.d"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for directory create event")
	}

	time.Sleep(50 * time.Millisecond)
	writeConf(t, filepath.Join(dir, "conf.d", "cache.conf"), "fastcgi_cache_key \"$host$request_uri\";\n")
	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for include change event")
	}
}

func TestWatcherSeesSiteFileWithDomainName(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "nginx.conf")
	writeConf(t, conf, "include sites-enabled/*;\n")
	writeConf(t, filepath.Join(dir, "sites-enabled", "placeholder"), "\n")

	w, err := New([]string{conf}, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	writeConf(t, filepath.Join(dir, "sites-enabled", "example.com"), "server { listen 80; }\n")
	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for site file event")
	}
}

func TestRunInvokesHandler(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "nginx.conf")
	writeConf(t, conf, "user nginx;\n")

	w, err := New([]string{conf}, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, w, func(context.Context) error {
			if calls.Add(1) == 1 {
				cancel()
			}
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	writeConf(t, conf, "user www-data;\n")

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for Run to return")
	}
	if calls.Load() < 1 {
		t.Fatal("expected handler to be called")
	}
}
