package preflight

import (
	"context"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/config"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/inspect"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/nginxconf"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail"`
	Optional bool   `json:"optional,omitempty"`
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, insp inspect.Inspector, locator *nginxconf.Locator) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckCacheDirSafety(cfg))
	results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	if locator != nil {
		results = append(results, CheckNginxConfig(locator))
	}

	if insp != nil {
		results = append(results, CheckShellExec(ctx, insp))
		for _, status := range CheckCommands(insp, cfg.Commands) {
			results = append(results, CommandResult(status))
		}
	}

	return results
}

// Failed returns the non-optional results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, result)
		}
	}
	return failed
}
