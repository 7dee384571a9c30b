package cacheinv

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/fileutil"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/logging"
)

// Outcome tags the result of an inventory operation.
type Outcome string

const (
	Counted      Outcome = "counted"
	NotFound     Outcome = "not_found"
	Undetermined Outcome = "undetermined"
	RegexError   Outcome = "regex_error"
)

// Result is the outcome of CountCachedURLs. Count is meaningful only when
// Outcome is Counted.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Count   int     `json:"count"`
}

// Entry is one cached page.
type Entry struct {
	Path       string `json:"path"`
	Host       string `json:"host"`
	RequestURI string `json:"request_uri"`
}

// URL returns the page URL with the https scheme nginx cache purges assume.
func (e Entry) URL() string {
	return "https://" + e.Host + e.RequestURI
}

var (
	redirectMarkers = []string{"Status: 301 Moved Permanently", "Status: 302 Found"}
	getKeyPattern   = regexp.MustCompile(`KEY:\s.*GET`)
)

// PermissionFunc reports whether the effective user may manage dir. The
// aggregator supplies a cached check.
type PermissionFunc func(ctx context.Context, dir string) bool

// Inventory walks a cache directory through FS.
type Inventory struct {
	FS          fileutil.FS
	Permissions PermissionFunc
	Logger      *slog.Logger
}

// New returns an inventory over fsys. A nil permissions func skips the
// permission precondition.
func New(fsys fileutil.FS, permissions PermissionFunc, logger *slog.Logger) *Inventory {
	if fsys == nil {
		fsys = fileutil.OS{}
	}
	return &Inventory{
		FS:          fsys,
		Permissions: permissions,
		Logger:      logging.NewComponentLogger(logger, "cacheinv"),
	}
}

var errUnreadable = errors.New("unreadable cache entry")
var errBadPattern = errors.New("cache key pattern does not yield a valid url")

// CountCachedURLs counts the cached pages under dir that pattern matches.
func (inv *Inventory) CountCachedURLs(ctx context.Context, dir string, pattern *regexp.Regexp) Result {
	if !inv.FS.IsDir(dir) {
		return Result{Outcome: NotFound}
	}
	if inv.Permissions != nil && !inv.Permissions(ctx, dir) {
		return Result{Outcome: Undetermined}
	}
	if pattern == nil {
		return Result{Outcome: RegexError}
	}

	count, skipped, unmatched := 0, 0, 0
	validated := false
	err := inv.eachEntry(ctx, dir, func(path, content string) error {
		if !eligible(content) {
			skipped++
			return nil
		}
		if !validated {
			if _, ok := extract(pattern, content); !ok {
				return errBadPattern
			}
			validated = true
		}
		if pattern.MatchString(content) {
			count++
		} else {
			unmatched++
		}
		return nil
	})
	switch {
	case errors.Is(err, errBadPattern):
		inv.logger().Debug("cache key pattern rejected", logging.String("pattern", pattern.String()))
		return Result{Outcome: RegexError}
	case err != nil:
		inv.logger().Debug("cache walk aborted", logging.String("dir", dir), logging.Error(err))
		return Result{Outcome: Undetermined}
	}
	inv.logger().Debug("cache walk finished",
		logging.String("dir", dir),
		logging.Int("count", count),
		logging.Int("skipped", skipped),
		logging.Int("unmatched", unmatched))
	return Result{Outcome: Counted, Count: count}
}

// ListURLs returns every eligible entry pattern maps to a URL.
func (inv *Inventory) ListURLs(ctx context.Context, dir string, pattern *regexp.Regexp) ([]Entry, Outcome) {
	if !inv.FS.IsDir(dir) {
		return nil, NotFound
	}
	if pattern == nil {
		return nil, RegexError
	}
	var entries []Entry
	err := inv.eachEntry(ctx, dir, func(path, content string) error {
		if !eligible(content) {
			return nil
		}
		entry, ok := extract(pattern, content)
		if !ok {
			if len(entries) == 0 {
				return errBadPattern
			}
			return nil
		}
		entry.Path = path
		entries = append(entries, entry)
		return nil
	})
	switch {
	case errors.Is(err, errBadPattern):
		return nil, RegexError
	case err != nil:
		return nil, Undetermined
	}
	return entries, Counted
}

// CheckPermissions reports whether the effective user can read, write and
// traverse every directory under dir and read and write every file.
func (inv *Inventory) CheckPermissions(ctx context.Context, dir string) bool {
	if !inv.FS.IsDir(dir) {
		return false
	}
	err := inv.FS.Walk(ctx, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		mode := uint32(unix.R_OK | unix.W_OK)
		if d.IsDir() {
			mode |= unix.X_OK
		}
		if !fileutil.Accessible(path, mode) {
			return fs.ErrPermission
		}
		return nil
	})
	if err != nil {
		inv.logger().Debug("cache permission check failed", logging.String("dir", dir), logging.Error(err))
		return false
	}
	return true
}

func (inv *Inventory) eachEntry(ctx context.Context, dir string, fn func(path, content string) error) error {
	return inv.FS.Walk(ctx, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !inv.FS.IsReadable(path) {
			return errUnreadable
		}
		data, err := inv.FS.ReadAll(path)
		if err != nil {
			return errUnreadable
		}
		return fn(path, string(data))
	})
}

func (inv *Inventory) logger() *slog.Logger {
	if inv.Logger == nil {
		return logging.NewNop()
	}
	return inv.Logger
}

func eligible(content string) bool {
	for _, marker := range redirectMarkers {
		if strings.Contains(content, marker) {
			return false
		}
	}
	return getKeyPattern.MatchString(content)
}

// extract applies pattern and checks the two capture groups form a valid URL.
func extract(pattern *regexp.Regexp, content string) (Entry, bool) {
	if pattern.NumSubexp() != 2 {
		return Entry{}, false
	}
	groups := pattern.FindStringSubmatch(content)
	if groups == nil {
		return Entry{}, false
	}
	host, uri := strings.TrimSpace(groups[1]), strings.TrimSpace(groups[2])
	if host+uri == "" || !validURL("https://"+host+uri) {
		return Entry{}, false
	}
	return Entry{Host: host, RequestURI: uri}, true
}

func validURL(raw string) bool {
	if strings.ContainsAny(raw, " \t\r\n") {
		return false
	}
	parsed, err := url.Parse(raw)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}
