package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/cacheinv"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/config"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/deps"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/fileutil"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/identity"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/inspect"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/logging"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/nginxconf"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/preflight"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/procstate"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/transient"
)

// Clear-cache outcomes shown to the operator.
const (
	MsgClearFailed  = "An error occurred while clearing the plugin cache."
	MsgClearSuccess = "Plugin cache cleared successfully. Refreshing the Status.."
)

const preloadCommand = "wget"

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithFS replaces the filesystem used by every sub-check.
func WithFS(fsys fileutil.FS) Option {
	return func(a *Aggregator) {
		a.fs = fsys
	}
}

// WithClock sets the clock used for report timestamps and cache expiry.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// Aggregator builds status reports.
type Aggregator struct {
	cfg       *config.Config
	store     transient.Store
	inspector inspect.Inspector
	logger    *slog.Logger
	fs        fileutil.FS
	now       func() time.Time

	Locator   *nginxconf.Locator
	Parser    *nginxconf.Parser
	Inventory *cacheinv.Inventory
	Identity  *identity.Resolver
	Tracker   *procstate.Tracker
	Namespace transient.Namespace

	flags      *transient.Cache[bool]
	keys       *transient.Cache[nginxconf.Directives]
	cachePaths *transient.Cache[[]string]
}

// New wires an Aggregator from cfg. store backs the expensive checks and
// insp answers process, command and shell probes.
func New(cfg *config.Config, store transient.Store, insp inspect.Inspector, logger *slog.Logger, opts ...Option) (*Aggregator, error) {
	if cfg == nil {
		return nil, errors.New("status: config is required")
	}
	if store == nil {
		return nil, errors.New("status: transient store is required")
	}
	if insp == nil {
		return nil, errors.New("status: inspector is required")
	}
	a := &Aggregator{
		cfg:       cfg,
		store:     store,
		inspector: insp,
		logger:    logging.NewComponentLogger(logger, "status"),
		fs:        fileutil.OS{},
		now:       time.Now,
		Namespace: transient.DefaultNamespace(),
	}
	for _, opt := range opts {
		opt(a)
	}

	serverPattern, err := regexp.Compile(cfg.Nginx.ServerProcessPattern)
	if err != nil {
		return nil, fmt.Errorf("status: server process pattern: %w", err)
	}

	clock := transient.WithClock(a.now)
	a.flags = transient.NewCache[bool](store, logger, clock)
	a.keys = transient.NewCache[nginxconf.Directives](store, logger, clock)
	a.cachePaths = transient.NewCache[[]string](store, logger, clock)

	a.Locator = nginxconf.NewLocator(a.fs, cfg.Nginx.ConfigCandidates)
	a.Parser = nginxconf.NewParser(a.fs, logger)
	a.Inventory = cacheinv.New(a.fs, a.permissionGate, logger)
	a.Identity = identity.NewResolver(
		insp,
		a.Locator,
		a.Parser,
		transient.NewCache[string](store, logger, clock),
		serverPattern,
		cfg.Engine.AppFile,
		cfg.CacheTTL(),
		logger,
	)
	a.Tracker = procstate.NewTracker(cfg.Paths.PIDFile, cfg.Engine.ExpectedProcessNames, logger)
	return a, nil
}

// Config returns the configuration the aggregator was built with.
func (a *Aggregator) Config() *config.Config {
	return a.cfg
}

// Report evaluates every status row.
func (a *Aggregator) Report(ctx context.Context) Report {
	report := Report{
		GeneratedAt: a.now(),
		CacheDir:    a.cfg.Paths.CacheDir,
	}

	report.ConfigPaths = a.Locator.LocateConfig()
	if len(report.ConfigPaths) == 0 {
		report.ConfigStatus = NotFound
		report.addMessage(SeverityError, "Unable to read or locate the nginx.conf configuration file. A custom nginx setup may keep it outside the default paths.")
	} else {
		report.ConfigStatus = Found
	}

	report.CacheKeys = a.CacheKeys(ctx)
	switch report.CacheKeys.State {
	case nginxconf.StateFound:
		report.CacheKeyStatus = Found
		report.UnsupportedKeys = report.CacheKeys.Unsupported()
		if len(report.UnsupportedKeys) > 0 {
			report.addMessage(SeverityInfo, "Unsupported FastCGI cache keys found! If the pages in cache count shows a regex error, check the cache key regex option.")
		}
	default:
		report.CacheKeyStatus = NotFound
		report.addMessage(SeverityWarning, "No fastcgi_cache_key directive was found. Review the nginx FastCGI cache setup.")
	}
	report.NginxCachePaths = a.NginxCachePaths(ctx)

	report.CachePath = a.CachePath()
	report.PurgeStatus = a.PermissionFor(ctx, GatePurge)
	report.Permission = a.PermissionFor(ctx, GatePermission)
	report.ServerAction = a.PermissionFor(ctx, GateServerAction)

	users := a.Identity.Users(ctx)
	report.RuntimeUser, report.ServerUser = users.Runtime, users.Server
	if users.Isolated() {
		report.Isolation = Isolated
	} else {
		report.Isolation = NotIsolated
		report.addMessage(SeverityWarning, fmt.Sprintf("The runtime user and the web server user are both %q; cache files are not isolated.", report.RuntimeUser))
	}
	report.PermissionLabel = PermissionLabel(report.Permission, report.RuntimeUser)

	report.ShellExec = a.ShellExec(ctx)
	report.Commands = a.Commands()
	report.PreloadStatus, report.PreloadPID = a.PreloadStatus(ctx, report.Commands)

	report.PagesInCache = a.PagesInCache(ctx)
	if report.PagesInCache.Status == RegexError {
		report.addMessage(SeverityError, "The cache key regex does not match the cached entries. Check nginx.cache_key_regex and try again.")
	}

	return report
}

// Gate selects the precedence used when reading the cached permission flag.
type Gate int

const (
	// GatePurge reports False when the cache path is missing.
	GatePurge Gate = iota
	// GatePermission reports NotFound when the cache path is missing.
	GatePermission
	// GateServerAction reports NotFound when the cache path is missing.
	GateServerAction
)

// CachePath reports whether the configured cache directory exists.
func (a *Aggregator) CachePath() Code {
	if a.fs.IsDir(a.cfg.Paths.CacheDir) {
		return Found
	}
	return NotFound
}

// PermissionFor returns the cached permission flag behind the path gate.
// A walk that runs out of time yields Undetermined and is not cached.
func (a *Aggregator) PermissionFor(ctx context.Context, gate Gate) Code {
	if a.CachePath() != Found {
		if gate == GatePurge {
			return False
		}
		return NotFound
	}
	granted, err := a.permission(ctx)
	if err != nil {
		return Undetermined
	}
	return FromBool(granted)
}

// permission returns the cached recursive permission check, computing it
// when absent.
func (a *Aggregator) permission(ctx context.Context) (bool, error) {
	key := transient.Key(transient.CheckPermissions)
	return a.flags.GetOrCompute(ctx, key, a.cfg.CacheTTL(), func(ctx context.Context) (bool, error) {
		walkCtx, cancel := context.WithTimeout(ctx, a.cfg.WalkTimeout())
		defer cancel()
		granted := a.Inventory.CheckPermissions(walkCtx, a.cfg.Paths.CacheDir)
		if err := walkCtx.Err(); err != nil {
			logging.WarnWithContext(a.logger, "cache permission walk incomplete", "permission_walk_incomplete",
				logging.Error(err),
				logging.String(logging.FieldImpact, "permission row reported as undetermined"),
			)
			return false, err
		}
		return granted, nil
	})
}

// permissionGate is the inventory precondition: only a cached false blocks
// counting.
func (a *Aggregator) permissionGate(ctx context.Context, _ string) bool {
	granted, ok := a.flags.Peek(ctx, transient.Key(transient.CheckPermissions))
	return !ok || granted
}

// PermissionLabel renders the permission row with the runtime user.
func PermissionLabel(permission Code, runtimeUser string) string {
	var label Code
	switch permission {
	case True:
		label = Granted
	case NotFound, Undetermined:
		label = NotDetermined
	default:
		label = NeedAction
	}
	return fmt.Sprintf("%s (%s)", label.Label(), runtimeUser)
}

// CacheKeys returns the cache key directives of the preferred nginx.conf.
func (a *Aggregator) CacheKeys(ctx context.Context) nginxconf.Directives {
	path, ok := a.Locator.Preferred()
	if !ok {
		return nginxconf.Directives{State: nginxconf.StateNotFound}
	}
	value, err := a.keys.GetOrCompute(ctx, transient.Key(transient.CheckCacheKeys), a.cfg.CacheTTL(), func(ctx context.Context) (nginxconf.Directives, error) {
		directives := a.Parser.ExtractCacheKeyDirectives(ctx, path)
		if directives.State == nginxconf.StateError {
			return directives, errors.New(directives.Error)
		}
		return directives, nil
	})
	if err != nil {
		logging.WarnWithContext(a.logger, "cache key extraction failed", "cache_keys_unavailable",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that nginx.conf and its includes are readable"),
		)
	}
	return value
}

// NginxCachePaths returns the fastcgi/proxy cache paths declared in the
// preferred nginx.conf.
func (a *Aggregator) NginxCachePaths(ctx context.Context) []string {
	path, ok := a.Locator.Preferred()
	if !ok {
		return nil
	}
	value, err := a.cachePaths.GetOrCompute(ctx, transient.Key(transient.CheckCachePaths), a.cfg.CacheTTL(), func(ctx context.Context) ([]string, error) {
		return a.Parser.ExtractCachePaths(ctx, path)
	})
	if err != nil {
		a.logger.Debug("cache path extraction failed", logging.String("path", path), logging.Error(err))
	}
	return value
}

// ShellExec reports whether shell commands can run.
func (a *Aggregator) ShellExec(ctx context.Context) Code {
	probeCtx, cancel := context.WithTimeout(ctx, a.cfg.CommandTimeout())
	defer cancel()
	if preflight.CheckShellExec(probeCtx, a.inspector).Passed {
		return Ok
	}
	return NotOk
}

// Commands resolves the configured commands plus wget.
func (a *Aggregator) Commands() []CommandStatus {
	statuses := preflight.CheckCommands(a.inspector, a.cfg.Commands)
	if _, ok := deps.Find(statuses, preloadCommand); !ok {
		statuses = append(statuses, deps.CheckBinariesWith(a.inspector.LookPath, []deps.Requirement{deps.NewRequirement(preloadCommand, false)})...)
	}
	out := make([]CommandStatus, 0, len(statuses))
	for _, s := range statuses {
		code := NotInstalled
		if s.Available {
			code = Installed
		}
		out = append(out, CommandStatus{Name: s.Command, Status: code, Optional: s.Optional, Path: s.Path})
	}
	return out
}

// PreloadStatus returns Progress with the PID of a live preload process,
// otherwise True when the preload could start and False when it could not.
func (a *Aggregator) PreloadStatus(ctx context.Context, commands []CommandStatus) (Code, int) {
	if pid, ok := a.Tracker.ActivePID(); ok {
		return Progress, pid
	}
	if commands == nil {
		commands = a.Commands()
	}
	wget := NotInstalled
	for _, cmd := range commands {
		if cmd.Name == preloadCommand {
			wget = cmd.Status
		}
	}
	path := a.CachePath()
	if path != Found || wget != Installed {
		return False, 0
	}
	if granted, ok := a.flags.Peek(ctx, transient.Key(transient.CheckPermissions)); ok && !granted {
		return False, 0
	}
	return True, 0
}

// Pattern compiles the configured cache key regex.
func (a *Aggregator) Pattern() (*regexp.Regexp, error) {
	return cacheinv.CompilePattern(a.cfg.Nginx.CacheKeyRegex)
}

// PagesInCache counts cached pages, bounded by the walk timeout.
func (a *Aggregator) PagesInCache(ctx context.Context) PageCount {
	pattern, err := a.Pattern()
	if err != nil {
		logging.WarnWithContext(a.logger, "cache key regex invalid", "cache_key_regex_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix nginx.cache_key_regex"),
		)
		return PageCount{Status: RegexError}
	}
	walkCtx, cancel := context.WithTimeout(ctx, a.cfg.WalkTimeout())
	defer cancel()
	result := a.Inventory.CountCachedURLs(walkCtx, a.cfg.Paths.CacheDir, pattern)
	if code, ok := FromOutcome(result.Outcome); ok {
		return PageCount{Status: code}
	}
	return PageCount{Count: result.Count}
}

// CachedURLs lists the cached page URLs.
func (a *Aggregator) CachedURLs(ctx context.Context) ([]cacheinv.Entry, Code) {
	pattern, err := a.Pattern()
	if err != nil {
		return nil, RegexError
	}
	if a.CachePath() != Found {
		return nil, NotFound
	}
	walkCtx, cancel := context.WithTimeout(ctx, a.cfg.WalkTimeout())
	defer cancel()
	entries, outcome := a.Inventory.ListURLs(walkCtx, a.cfg.Paths.CacheDir, pattern)
	if code, ok := FromOutcome(outcome); ok {
		return nil, code
	}
	return entries, Found
}

// ClearCache drops every memoized check. The error wraps
// transient.ErrClearFailed when a key survived.
func (a *Aggregator) ClearCache(ctx context.Context) error {
	if err := transient.InvalidateNamespace(ctx, a.store, a.Namespace); err != nil {
		logging.WarnWithContext(a.logger, "plugin cache clear failed", "cache_clear_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "status rows may be stale until the TTL elapses"),
		)
		return err
	}
	a.logger.Info("plugin cache cleared")
	return nil
}

// ClearCacheMessage maps a ClearCache result to the operator message.
func ClearCacheMessage(err error) string {
	if err != nil {
		return MsgClearFailed
	}
	return MsgClearSuccess
}
