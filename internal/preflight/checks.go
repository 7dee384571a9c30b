package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/config"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/deps"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/inspect"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/nginxconf"
)

const shellProbe = "Test"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCacheDirSafety rejects cache directories that sit on critical system
// paths or do not look like a dedicated cache location.
func CheckCacheDirSafety(cfg *config.Config) Result {
	const name = "Cache path safety"
	if err := cfg.CheckCacheDirSafety(); err != nil {
		if errors.Is(err, config.ErrCriticalPath) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: critical system path)", cfg.Paths.CacheDir)}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Paths.CacheDir}
}

// CheckNginxConfig reports the preferred nginx.conf location.
func CheckNginxConfig(locator *nginxconf.Locator) Result {
	const name = "Nginx config"
	path, ok := locator.Preferred()
	if !ok {
		return Result{Name: name, Detail: "Not Found"}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckShellExec verifies that the engine can run a shell and read its output.
func CheckShellExec(ctx context.Context, insp inspect.Inspector) Result {
	const name = "Shell exec"
	out, err := insp.Run(ctx, "sh", "-c", "echo "+shellProbe)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unavailable (%v)", err)}
	}
	if strings.TrimSpace(out) != shellProbe {
		return Result{Name: name, Detail: fmt.Sprintf("unexpected output %q", out)}
	}
	return Result{Name: name, Passed: true, Detail: "Ok"}
}

// CheckCommands resolves the configured required and optional commands.
func CheckCommands(insp inspect.Inspector, cmds config.Commands) []deps.Status {
	return deps.CheckBinariesWith(insp.LookPath, deps.Requirements(cmds.Required, cmds.Optional))
}

// CommandResult converts a dependency status into a preflight result.
func CommandResult(status deps.Status) Result {
	result := Result{
		Name:     status.Name,
		Passed:   status.Available,
		Optional: status.Optional,
	}
	switch {
	case status.Available:
		result.Detail = status.Path
	case status.Optional:
		result.Detail = "optional; " + status.Detail
	default:
		result.Detail = status.Detail
	}
	return result
}
