package nginxconf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/fileutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocateConfigReturnsExistingInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "etc", "nginx", "nginx.conf")
	second := filepath.Join(dir, "usr", "local", "etc", "nginx", "nginx.conf")
	third := filepath.Join(dir, "opt", "nginx", "conf", "nginx.conf")
	writeFile(t, second, "events {}\n")
	writeFile(t, third, "events {}\n")
	if err := os.MkdirAll(first, 0o755); err != nil { // directory, not a file
		t.Fatal(err)
	}

	locator := NewLocator(fileutil.OS{}, []string{first, second, third})
	got := locator.LocateConfig()
	if want := []string{second, third}; !reflect.DeepEqual(got, want) {
		t.Fatalf("LocateConfig() = %v, want %v", got, want)
	}
	preferred, ok := locator.Preferred()
	if !ok || preferred != second {
		t.Fatalf("Preferred() = %q, %v", preferred, ok)
	}
}

func TestLocateConfigEmpty(t *testing.T) {
	locator := NewLocator(fileutil.OS{}, []string{filepath.Join(t.TempDir(), "nginx.conf")})
	if got := locator.LocateConfig(); len(got) != 0 {
		t.Fatalf("expected no configs, got %v", got)
	}
	if _, ok := locator.Preferred(); ok {
		t.Fatal("expected no preferred config")
	}
}

func TestNewLocatorDefaults(t *testing.T) {
	locator := NewLocator(nil, nil)
	if len(locator.Candidates) != 8 || locator.Candidates[0] != "/etc/nginx/nginx.conf" {
		t.Fatalf("unexpected default candidates %v", locator.Candidates)
	}
}

func TestExtractCacheKeyDirectivesNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nginx.conf")
	writeFile(t, path, "http {\n  # fastcgi_cache_key \"$host$request_uri\";\n  server { listen 80; }\n}\n")

	got := NewParser(nil, nil).ExtractCacheKeyDirectives(context.Background(), path)
	if got.State != StateNotFound || len(got.Keys) != 0 {
		t.Fatalf("expected NotFound, got %+v", got)
	}
}

func TestExtractCacheKeyDirectivesSingle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nginx.conf")
	writeFile(t, path, "http {\n  fastcgi_cache_key \"$scheme$request_method$host$request_uri\";\n}\n")

	got := NewParser(nil, nil).ExtractCacheKeyDirectives(context.Background(), path)
	if got.State != StateFound {
		t.Fatalf("expected Found, got %+v", got)
	}
	if want := []string{"$scheme$request_method$host$request_uri"}; !reflect.DeepEqual(got.Keys, want) {
		t.Fatalf("Keys = %v, want %v", got.Keys, want)
	}
	if len(got.Unsupported()) != 0 {
		t.Fatalf("expected no unsupported keys, got %v", got.Unsupported())
	}
}

func TestExtractCacheKeyDirectivesFollowsIncludes(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "nginx.conf")
	writeFile(t, main, "user www-data;\nhttp {\n  include conf.d/*.conf;\n  include nginx.conf;\n}\n")
	writeFile(t, filepath.Join(dir, "conf.d", "a.conf"),
		"fastcgi_cache_path /dev/shm/fastcgi levels=1:2 keys_zone=one:10m;\nfastcgi_cache_key \"$scheme$request_method$host$request_uri\";")
	writeFile(t, filepath.Join(dir, "conf.d", "b.conf"),
		"proxy_cache_key $host$request_uri$cookie_user;proxy_cache_path '/var/cache/proxy' keys_zone=two:1m;")

	parser := NewParser(nil, nil)
	ctx := context.Background()

	got := parser.ExtractCacheKeyDirectives(ctx, main)
	want := []string{"$scheme$request_method$host$request_uri", "$host$request_uri$cookie_user"}
	if got.State != StateFound || !reflect.DeepEqual(got.Keys, want) {
		t.Fatalf("ExtractCacheKeyDirectives = %+v, want keys %v", got, want)
	}
	if unsupported := got.Unsupported(); !reflect.DeepEqual(unsupported, []string{"$host$request_uri$cookie_user"}) {
		t.Fatalf("Unsupported() = %v", unsupported)
	}

	paths, err := parser.ExtractCachePaths(ctx, main)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"/dev/shm/fastcgi", "/var/cache/proxy"}; !reflect.DeepEqual(paths, want) {
		t.Fatalf("ExtractCachePaths = %v, want %v", paths, want)
	}

	user, err := parser.ExtractUser(ctx, main)
	if err != nil || user != "www-data" {
		t.Fatalf("ExtractUser = %q, %v", user, err)
	}
}

func TestExtractCacheKeyDirectivesIncludeDepth(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i <= MaxIncludeDepth+1; i++ {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("level%d.conf", i)),
			fmt.Sprintf("include level%d.conf;\n", i+1))
	}
	got := NewParser(nil, nil).ExtractCacheKeyDirectives(context.Background(), filepath.Join(dir, "level0.conf"))
	if got.State != StateError {
		t.Fatalf("expected Error state, got %+v", got)
	}

	_, err := NewParser(nil, nil).Statements(context.Background(), filepath.Join(dir, "level0.conf"))
	if !errors.Is(err, ErrIncludeDepth) {
		t.Fatalf("expected ErrIncludeDepth, got %v", err)
	}
}

func TestExtractCacheKeyDirectivesMissingFile(t *testing.T) {
	got := NewParser(nil, nil).ExtractCacheKeyDirectives(context.Background(), filepath.Join(t.TempDir(), "none.conf"))
	if got.State != StateError || got.Error == "" {
		t.Fatalf("expected Error state with message, got %+v", got)
	}
}

func TestExtractUserAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nginx.conf")
	writeFile(t, path, "worker_processes auto;\n")
	user, err := NewParser(nil, nil).ExtractUser(context.Background(), path)
	if err != nil || user != "" {
		t.Fatalf("ExtractUser = %q, %v", user, err)
	}
}

func TestStripCommentsKeepsQuotedHash(t *testing.T) {
	in := "add_header X-Tag \"a#b\"; # trailing\nlisten 80;"
	want := "add_header X-Tag \"a#b\"; \nlisten 80;"
	if got := StripComments(in); got != want {
		t.Fatalf("StripComments() = %q, want %q", got, want)
	}
}

func TestIsSupportedKey(t *testing.T) {
	cases := map[string]bool{
		"$scheme$request_method$host$request_uri": true,
		"$host$request_uri":                       true,
		"${host}${request_uri}":                   true,
		"$scheme$host":                            false,
		"$host$request_uri$cookie_session":        false,
		"static":                                  false,
	}
	for key, want := range cases {
		if got := IsSupportedKey(key); got != want {
			t.Fatalf("IsSupportedKey(%q) = %v, want %v", key, got, want)
		}
	}
}
