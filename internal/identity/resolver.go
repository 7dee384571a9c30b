package identity

import (
	"context"
	"log/slog"
	"os/user"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/inspect"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/logging"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/nginxconf"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/transient"
)

// NotDetermined is returned when no source yields a user.
const NotDetermined = "Not Determined"

// FallbackConfigPath is probed when no candidate nginx.conf was located
// and Resolver.FallbackPath is empty.
const FallbackConfigPath = "/etc/nginx/nginx.conf"

const superuser = "root"

// Resolver answers identity questions for the status report.
type Resolver struct {
	Inspector     inspect.Inspector
	Locator       *nginxconf.Locator
	Parser        *nginxconf.Parser
	Cache         *transient.Cache[string]
	ServerPattern *regexp.Regexp
	AppFile       string
	FallbackPath  string
	TTL           time.Duration
	Logger        *slog.Logger

	currentUser func() (*user.User, error)
}

// NewResolver returns a Resolver. A nil cache recomputes the server user on
// every call.
func NewResolver(insp inspect.Inspector, locator *nginxconf.Locator, parser *nginxconf.Parser, cache *transient.Cache[string], serverPattern *regexp.Regexp, appFile string, ttl time.Duration, logger *slog.Logger) *Resolver {
	return &Resolver{
		Inspector:     insp,
		Locator:       locator,
		Parser:        parser,
		Cache:         cache,
		ServerPattern: serverPattern,
		AppFile:       appFile,
		FallbackPath:  FallbackConfigPath,
		TTL:           ttl,
		Logger:        logging.NewComponentLogger(logger, "identity"),
		currentUser:   lookupEffectiveUser,
	}
}

func lookupEffectiveUser() (*user.User, error) {
	return user.LookupId(strconv.Itoa(unix.Geteuid()))
}

// RuntimeUser returns the effective user of this process. When the passwd
// lookup fails it falls back to the owner of AppFile.
func (r *Resolver) RuntimeUser(ctx context.Context) string {
	lookup := r.currentUser
	if lookup == nil {
		lookup = lookupEffectiveUser
	}
	if u, err := lookup(); err == nil && strings.TrimSpace(u.Username) != "" {
		return strings.TrimSpace(u.Username)
	} else if err != nil {
		r.logger().Debug("effective user lookup failed", logging.Error(err))
	}
	if r.AppFile == "" || r.Inspector == nil {
		return NotDetermined
	}
	owner, err := r.Inspector.FileOwner(ctx, r.AppFile)
	if err != nil || strings.TrimSpace(owner) == "" {
		r.logger().Debug("app file owner lookup failed", logging.String("path", r.AppFile), logging.Error(err))
		return NotDetermined
	}
	return strings.TrimSpace(owner)
}

// ServerUser returns the reconciled web server user, cached for TTL.
func (r *Resolver) ServerUser(ctx context.Context) string {
	compute := func(ctx context.Context) (string, error) {
		return r.resolveServerUser(ctx), nil
	}
	if r.Cache == nil {
		value, _ := compute(ctx)
		return value
	}
	value, _ := r.Cache.GetOrCompute(ctx, transient.Key(transient.CheckWebserverUser), r.TTL, compute)
	return value
}

// Users pairs the runtime user with the web server user.
type Users struct {
	Runtime string
	Server  string
}

// Isolated reports whether the runtime user differs from the server user.
func (u Users) Isolated() bool {
	return u.Runtime != u.Server
}

// Users resolves both identities in one call.
func (r *Resolver) Users(ctx context.Context) Users {
	return Users{Runtime: r.RuntimeUser(ctx), Server: r.ServerUser(ctx)}
}

func (r *Resolver) resolveServerUser(ctx context.Context) string {
	path := r.FallbackPath
	if path == "" {
		path = FallbackConfigPath
	}
	if r.Locator != nil {
		if preferred, ok := r.Locator.Preferred(); ok {
			path = preferred
		}
	}
	if r.Locator == nil || !r.Locator.FS.IsFile(path) {
		r.logger().Debug("nginx config not found", logging.String("path", path))
		return NotDetermined
	}

	var declared string
	if r.Parser != nil {
		var err error
		declared, err = r.Parser.ExtractUser(ctx, path)
		if err != nil {
			r.logger().Debug("nginx user directive unreadable", logging.String("path", path), logging.Error(err))
		}
	}

	observed := r.observedUsers(ctx)
	verdict := Reconcile(declared, observed)
	r.logger().Debug("web server user resolved",
		logging.String("user", verdict.User),
		logging.String("source", string(verdict.Source)),
		logging.Int("observed", len(observed)),
	)
	return verdict.User
}

func (r *Resolver) observedUsers(ctx context.Context) []string {
	if r.Inspector == nil {
		return nil
	}
	procs, err := r.Inspector.FindProcessesByNamePattern(ctx, r.ServerPattern)
	if err != nil {
		r.logger().Debug("process scan failed", logging.Error(err))
		return nil
	}
	return DistinctUsers(procs)
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}

// DistinctUsers returns the sorted, distinct owners of procs, root excluded.
func DistinctUsers(procs []inspect.Process) []string {
	seen := make(map[string]struct{}, len(procs))
	var users []string
	for _, proc := range procs {
		name := strings.TrimSpace(proc.User)
		if name == "" || name == superuser {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		users = append(users, name)
	}
	sort.Strings(users)
	return users
}

// Source names where a reconciled server user came from.
type Source string

const (
	SourceConfirmed Source = "config+process"
	SourceConfig    Source = "config"
	SourceProcess   Source = "process"
	SourceNone      Source = "none"
)

// Verdict is the outcome of Reconcile.
type Verdict struct {
	User   string `json:"user"`
	Source Source `json:"source"`
}

// Reconcile picks the server user from the declared user and the observed
// process owners. A declared user seen among the observed owners is
// confirmed; an unconfirmed declared user still beats the process table.
func Reconcile(declared string, observed []string) Verdict {
	declared = strings.TrimSpace(declared)
	if declared != "" {
		for _, name := range observed {
			if name == declared {
				return Verdict{User: declared, Source: SourceConfirmed}
			}
		}
		return Verdict{User: declared, Source: SourceConfig}
	}
	if len(observed) > 0 {
		return Verdict{User: observed[0], Source: SourceProcess}
	}
	return Verdict{User: NotDetermined, Source: SourceNone}
}
