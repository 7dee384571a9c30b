package transient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Prefix starts every key owned by nppp.
const Prefix = "nppp_"

// ErrClearFailed reports keys that survived InvalidateNamespace.
var ErrClearFailed = errors.New("an error occurred while clearing the plugin cache")

// Check names used by the status engine.
const (
	CheckPermissions   = "permissions_check"
	CheckCacheKeys     = "cache_keys"
	CheckCachePaths    = "cache_paths"
	CheckWebserverUser = "webserver_user"
)

var namespaceSuffix = fmt.Sprintf("%016x", xxhash.Sum64String("nppp"))

// Key returns the namespaced key for a check name.
func Key(name string) string {
	return Prefix + name + "_" + namespaceSuffix
}

// Namespace describes the keys cleared together.
type Namespace struct {
	Prefix string
	// Fixed keys are always targeted, present or not.
	Fixed []string
	// Dynamic substrings select additional keys discovered through Store.Keys.
	Dynamic []string
}

// DefaultNamespace covers every key the engine and its purge/preload
// collaborators write.
func DefaultNamespace() Namespace {
	return Namespace{
		Prefix: Prefix,
		Fixed: []string{
			Prefix + "cache_keys_wpfilesystem_error",
			Prefix + "nginx_conf_not_found",
			Prefix + "cache_keys_not_found",
			Prefix + "cache_path_not_found",
			Prefix + "fuse_path_not_found",
			Key(CheckCacheKeys),
			Key("bindfs_version"),
			Key("libfuse_version"),
			Key(CheckPermissions),
			Key(CheckCachePaths),
			Key("fuse_paths"),
			Key(CheckWebserverUser),
		},
		Dynamic: []string{Prefix + "category_", Prefix + "rate_limit_"},
	}
}

// Targets returns every key InvalidateNamespace would delete from store.
func (ns Namespace) Targets(ctx context.Context, store Store) ([]string, error) {
	seen := make(map[string]struct{}, len(ns.Fixed))
	targets := make([]string, 0, len(ns.Fixed))
	add := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		targets = append(targets, key)
	}
	for _, key := range ns.Fixed {
		add(key)
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		return targets, err
	}
	for _, key := range keys {
		if ns.matches(key) {
			add(key)
		}
	}
	return targets, nil
}

func (ns Namespace) matches(key string) bool {
	if ns.Prefix != "" && strings.HasPrefix(key, ns.Prefix) {
		return true
	}
	for _, fragment := range ns.Dynamic {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

// InvalidateNamespace deletes every key in ns and confirms each one is gone.
// Surviving keys are reported through ErrClearFailed.
func InvalidateNamespace(ctx context.Context, store Store, ns Namespace) error {
	targets, listErr := ns.Targets(ctx, store)
	for _, key := range targets {
		_ = store.Delete(ctx, key)
	}

	var survivors []string
	for _, key := range targets {
		_, ok, err := store.Get(ctx, key)
		if ok || err != nil {
			survivors = append(survivors, key)
		}
	}
	if len(survivors) > 0 {
		return fmt.Errorf("%w: %s", ErrClearFailed, strings.Join(survivors, ", "))
	}
	if listErr != nil {
		return fmt.Errorf("%w: list keys: %v", ErrClearFailed, listErr)
	}
	return nil
}
