package status_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/config"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/inspect"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/status"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/testsupport"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/transient"
)

const supportedConf = `user www-data;
http {
    fastcgi_cache_path /var/cache/nginx levels=1:2 keys_zone=site:100m;
    fastcgi_cache_key "$scheme$request_method$host$request_uri";
}
`

func healthyInspector() *inspect.Fake {
	return &inspect.Fake{
		Processes: []inspect.Process{
			{PID: 1, User: "root", Command: "nginx: master process"},
			{PID: 2, User: "www-data", Command: "nginx: worker process"},
		},
		Commands: map[string]string{"wget": "/usr/bin/wget"},
		Outputs:  map[string]string{"sh -c echo Test": "Test"},
	}
}

func newAggregator(t *testing.T, cfg *config.Config, insp inspect.Inspector) (*status.Aggregator, transient.Store) {
	t.Helper()
	store := transient.NewMemoryStore()
	agg, err := status.New(cfg, store, insp, nil)
	if err != nil {
		t.Fatalf("status.New: %v", err)
	}
	return agg, store
}

func seedCache(t *testing.T, cfg *config.Config) {
	t.Helper()
	dir := cfg.Paths.CacheDir
	testsupport.WriteCacheEntry(t, dir, "a/1/one", testsupport.CacheEntry{Key: "httpsGETexample.com/page"})
	testsupport.WriteCacheEntry(t, dir, "b/2/two", testsupport.CacheEntry{Key: "httpsGETexample.com/blog/"})
	testsupport.WriteCacheEntry(t, dir, "c/3/three", testsupport.CacheEntry{
		Key:    "httpsGETexample.com/old",
		Status: "301 Moved Permanently",
	})
}

func TestReportHealthy(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNginxConfig(supportedConf))
	seedCache(t, cfg)
	agg, _ := newAggregator(t, cfg, healthyInspector())

	report := agg.Report(context.Background())

	if report.ConfigStatus != status.Found || len(report.ConfigPaths) != 1 {
		t.Fatalf("unexpected config rows: %q %v", report.ConfigStatus, report.ConfigPaths)
	}
	if report.CacheKeyStatus != status.Found || len(report.UnsupportedKeys) != 0 {
		t.Fatalf("unexpected cache key rows: %#v", report.CacheKeys)
	}
	if len(report.NginxCachePaths) != 1 || report.NginxCachePaths[0] != "/var/cache/nginx" {
		t.Fatalf("unexpected nginx cache paths: %v", report.NginxCachePaths)
	}
	if report.CachePath != status.Found {
		t.Fatalf("expected cache path Found, got %q", report.CachePath)
	}
	if report.Permission != status.True || report.PurgeStatus != status.True || report.ServerAction != status.True {
		t.Fatalf("unexpected permission rows: %q %q %q", report.Permission, report.PurgeStatus, report.ServerAction)
	}
	if !strings.HasPrefix(report.PermissionLabel, "Granted (") {
		t.Fatalf("unexpected permission label %q", report.PermissionLabel)
	}
	if report.ShellExec != status.Ok {
		t.Fatalf("expected shell exec Ok, got %q", report.ShellExec)
	}
	if report.ServerUser != "www-data" {
		t.Fatalf("expected www-data server user, got %q", report.ServerUser)
	}
	wantIsolation := status.Isolated
	if report.RuntimeUser == report.ServerUser {
		wantIsolation = status.NotIsolated
	}
	if report.Isolation != wantIsolation {
		t.Fatalf("expected %q, got %q", wantIsolation, report.Isolation)
	}
	wget, ok := report.Command("wget")
	if !ok || wget.Status != status.Installed {
		t.Fatalf("unexpected wget row: %#v", wget)
	}
	cpulimit, ok := report.Command("cpulimit")
	if !ok || cpulimit.Status != status.NotInstalled || !cpulimit.Optional {
		t.Fatalf("unexpected cpulimit row: %#v", cpulimit)
	}
	if report.PreloadStatus != status.True {
		t.Fatalf("expected preload status true, got %q", report.PreloadStatus)
	}
	if !report.PagesInCache.Counted() || report.PagesInCache.Count != 2 {
		t.Fatalf("expected 2 pages in cache, got %#v", report.PagesInCache)
	}
}

func TestReportMissingCacheDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNginxConfig(supportedConf), testsupport.WithoutCacheDir())
	agg, _ := newAggregator(t, cfg, healthyInspector())

	report := agg.Report(context.Background())

	if report.CachePath != status.NotFound {
		t.Fatalf("expected cache path Not Found, got %q", report.CachePath)
	}
	if report.PurgeStatus != status.False {
		t.Fatalf("expected purge status false, got %q", report.PurgeStatus)
	}
	if report.Permission != status.NotFound || report.ServerAction != status.NotFound {
		t.Fatalf("expected permission Not Found, got %q %q", report.Permission, report.ServerAction)
	}
	if !strings.HasPrefix(report.PermissionLabel, "Not Determined (") {
		t.Fatalf("unexpected permission label %q", report.PermissionLabel)
	}
	if report.PreloadStatus != status.False {
		t.Fatalf("expected preload false, got %q", report.PreloadStatus)
	}
	if report.PagesInCache.Status != status.NotFound {
		t.Fatalf("expected pages Not Found, got %#v", report.PagesInCache)
	}
}

func TestReportPreloadInProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNginxConfig(supportedConf))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	agg, _ := newAggregator(t, cfg, &inspect.Fake{})

	report := agg.Report(context.Background())
	if report.PreloadStatus != status.Progress {
		t.Fatalf("expected progress, got %q", report.PreloadStatus)
	}
	if report.PreloadPID != os.Getpid() {
		t.Fatalf("expected pid %d, got %d", os.Getpid(), report.PreloadPID)
	}
}

func TestReportStalePIDFallsThrough(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNginxConfig(supportedConf))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.PIDFile, []byte("999999"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}

	agg, _ := newAggregator(t, cfg, healthyInspector())
	if code, _ := agg.PreloadStatus(context.Background(), nil); code != status.True {
		t.Fatalf("expected true with stale pid and healthy checks, got %q", code)
	}

	agg, _ = newAggregator(t, cfg, &inspect.Fake{})
	if code, _ := agg.PreloadStatus(context.Background(), nil); code != status.False {
		t.Fatalf("expected false without wget, got %q", code)
	}
}

func TestReportCachedPermissionFalse(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNginxConfig(supportedConf))
	seedCache(t, cfg)
	agg, store := newAggregator(t, cfg, healthyInspector())

	flags := transient.NewCache[bool](store, nil)
	flags.Set(context.Background(), transient.Key(transient.CheckPermissions), false, time.Hour)

	report := agg.Report(context.Background())
	if report.Permission != status.False || report.PurgeStatus != status.False {
		t.Fatalf("expected cached false permission, got %q %q", report.Permission, report.PurgeStatus)
	}
	if !strings.HasPrefix(report.PermissionLabel, "Need Action (Check Help) (") {
		t.Fatalf("unexpected permission label %q", report.PermissionLabel)
	}
	if report.PreloadStatus != status.False {
		t.Fatalf("expected preload false, got %q", report.PreloadStatus)
	}
	if report.PagesInCache.Status != status.Undetermined {
		t.Fatalf("expected pages Undetermined, got %#v", report.PagesInCache)
	}
}

func TestPermissionUndeterminedWhenWalkCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNginxConfig(supportedConf))
	seedCache(t, cfg)
	agg, store := newAggregator(t, cfg, healthyInspector())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := agg.PermissionFor(ctx, status.GatePermission); got != status.Undetermined {
		t.Fatalf("expected Undetermined for an interrupted walk, got %q", got)
	}
	flags := transient.NewCache[bool](store, nil)
	if _, ok := flags.Peek(context.Background(), transient.Key(transient.CheckPermissions)); ok {
		t.Fatal("interrupted walk must not be cached")
	}
	if got := agg.PermissionFor(context.Background(), status.GatePermission); got != status.True {
		t.Fatalf("expected True once the walk completes, got %q", got)
	}
}

func TestReportPersistentBackends(t *testing.T) {
	for _, backend := range []string{config.CacheBackendSQLite, config.CacheBackendLevelDB} {
		t.Run(backend, func(t *testing.T) {
			cfg := testsupport.NewConfig(t,
				testsupport.WithNginxConfig(supportedConf),
				testsupport.WithCacheBackend(backend),
			)
			seedCache(t, cfg)
			store := testsupport.MustOpenStore(t, cfg)
			agg, err := status.New(cfg, store, healthyInspector(), nil)
			if err != nil {
				t.Fatalf("status.New: %v", err)
			}

			first := agg.Report(context.Background())
			if first.ServerUser != "www-data" || first.Permission != status.True {
				t.Fatalf("unexpected first report: %q %q", first.ServerUser, first.Permission)
			}
			keys, err := store.Keys(context.Background())
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if len(keys) == 0 {
				t.Fatal("expected memoized checks in the store")
			}

			if err := agg.ClearCache(context.Background()); err != nil {
				t.Fatalf("ClearCache: %v", err)
			}
			keys, err = store.Keys(context.Background())
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if len(keys) != 0 {
				t.Fatalf("expected empty store after clear, got %v", keys)
			}
		})
	}
}

func TestReportRegexError(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNginxConfig(supportedConf))
	seedCache(t, cfg)
	cfg.Nginx.CacheKeyRegex = "("
	agg, _ := newAggregator(t, cfg, healthyInspector())

	report := agg.Report(context.Background())
	if report.PagesInCache.Status != status.RegexError {
		t.Fatalf("expected RegexError, got %#v", report.PagesInCache)
	}
	if !hasMessage(report, status.SeverityError, "regex") {
		t.Fatalf("expected regex error message, got %#v", report.Messages)
	}
}

func TestReportWithoutNginxConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	agg, _ := newAggregator(t, cfg, healthyInspector())

	report := agg.Report(context.Background())
	if report.ConfigStatus != status.NotFound || len(report.ConfigPaths) != 0 {
		t.Fatalf("expected config Not Found, got %q %v", report.ConfigStatus, report.ConfigPaths)
	}
	if report.CacheKeyStatus != status.NotFound {
		t.Fatalf("expected cache keys Not Found, got %q", report.CacheKeyStatus)
	}
	if !hasMessage(report, status.SeverityError, "nginx.conf") {
		t.Fatalf("expected nginx.conf error message, got %#v", report.Messages)
	}
	if !hasMessage(report, status.SeverityWarning, "fastcgi_cache_key") {
		t.Fatalf("expected cache key warning, got %#v", report.Messages)
	}
}

func TestReportUnsupportedCacheKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNginxConfig(`fastcgi_cache_key "$host$request_uri$cookie_user";`))
	agg, _ := newAggregator(t, cfg, healthyInspector())

	report := agg.Report(context.Background())
	if report.CacheKeyStatus != status.Found {
		t.Fatalf("expected cache key Found, got %q", report.CacheKeyStatus)
	}
	if len(report.UnsupportedKeys) != 1 {
		t.Fatalf("expected one unsupported key, got %v", report.UnsupportedKeys)
	}
	if !hasMessage(report, status.SeverityInfo, "Unsupported FastCGI cache keys") {
		t.Fatalf("expected unsupported key message, got %#v", report.Messages)
	}
}

func TestReportShellUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNginxConfig(supportedConf))
	agg, _ := newAggregator(t, cfg, &inspect.Fake{})
	if code := agg.ShellExec(context.Background()); code != status.NotOk {
		t.Fatalf("expected Not Ok, got %q", code)
	}
}

func TestClearCacheDropsMemoizedChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNginxConfig(supportedConf))
	seedCache(t, cfg)
	agg, store := newAggregator(t, cfg, healthyInspector())
	ctx := context.Background()

	agg.Report(ctx)
	memoized := []string{
		transient.Key(transient.CheckPermissions),
		transient.Key(transient.CheckCacheKeys),
		transient.Key(transient.CheckCachePaths),
		transient.Key(transient.CheckWebserverUser),
	}
	for _, key := range memoized {
		if _, ok, _ := store.Get(ctx, key); !ok {
			t.Fatalf("expected %s to be memoized", key)
		}
	}
	foreign := transient.Record{Key: "other_plugin_key", Value: []byte(`1`)}
	if err := store.Set(ctx, foreign); err != nil {
		t.Fatalf("set foreign key: %v", err)
	}

	err := agg.ClearCache(ctx)
	if err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	if msg := status.ClearCacheMessage(err); msg != status.MsgClearSuccess {
		t.Fatalf("unexpected message %q", msg)
	}
	for _, key := range memoized {
		if _, ok, _ := store.Get(ctx, key); ok {
			t.Fatalf("expected %s to be cleared", key)
		}
	}
	if _, ok, _ := store.Get(ctx, foreign.Key); !ok {
		t.Fatal("foreign key must survive the clear")
	}
}

func TestClearCacheMessageOnFailure(t *testing.T) {
	err := errors.Join(transient.ErrClearFailed, errors.New("nppp_x"))
	if msg := status.ClearCacheMessage(err); msg != status.MsgClearFailed {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestNewRejectsBadServerPattern(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Nginx.ServerProcessPattern = "("
	if _, err := status.New(cfg, transient.NewMemoryStore(), &inspect.Fake{}, nil); err == nil {
		t.Fatal("expected error for invalid server pattern")
	}
}

func TestCachedURLs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNginxConfig(supportedConf))
	seedCache(t, cfg)
	agg, _ := newAggregator(t, cfg, healthyInspector())

	entries, code := agg.CachedURLs(context.Background())
	if code != status.Found {
		t.Fatalf("expected Found, got %q", code)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 urls, got %#v", entries)
	}
}

func hasMessage(report status.Report, severity status.Severity, fragment string) bool {
	for _, msg := range report.Messages {
		if msg.Severity == severity && strings.Contains(msg.Text, fragment) {
			return true
		}
	}
	return false
}
