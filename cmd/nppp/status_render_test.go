package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/status"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Preload", statusError, "Not ready", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Preload:", "[ERROR] Not ready")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Preload", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestKindForCode(t *testing.T) {
	cases := []struct {
		code status.Code
		want statusKind
	}{
		{status.Found, statusOK},
		{status.NotFound, statusError},
		{status.NotDetermined, statusWarn},
		{status.Progress, statusInfo},
	}
	for _, tc := range cases {
		if got := kindForCode(tc.code); got != tc.want {
			t.Fatalf("kindForCode(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestShouldColorizeRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	if shouldColorize(f) {
		t.Fatalf("expected regular file to disable color")
	}
}
