package config

const (
	// DefaultCacheDir is the placeholder cache path shipped with the plugin.
	// It is whitelisted by validation so a fresh install loads cleanly.
	DefaultCacheDir = "/dev/shm/change-me-now"

	CacheBackendSQLite  = "sqlite"
	CacheBackendLevelDB = "leveldb"
	CacheBackendMemory  = "memory"

	defaultStateDir             = "~/.local/share/nppp"
	defaultPIDFileName          = "cache_preload.pid"
	defaultCacheBackend         = CacheBackendSQLite
	defaultCacheTTLDays         = 30
	defaultWalkTimeout          = 30
	defaultCommandTimeout       = 5
	defaultServerProcessPattern = "apache|httpd|_www|www-data|nginx"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// DefaultConfigCandidates lists the conventional nginx.conf locations, most
// common first.
var DefaultConfigCandidates = []string{
	"/etc/nginx/nginx.conf",
	"/usr/local/etc/nginx/nginx.conf",
	"/usr/local/nginx/conf/nginx.conf",
	"/opt/nginx/conf/nginx.conf",
	"/etc/local/nginx/conf/nginx.conf",
	"/usr/pkg/etc/nginx/nginx.conf",
	"/opt/local/etc/nginx/nginx.conf",
	"/usr/local/openresty/nginx/conf/nginx.conf",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	candidates := make([]string, len(DefaultConfigCandidates))
	copy(candidates, DefaultConfigCandidates)
	return Config{
		Paths: Paths{
			CacheDir: DefaultCacheDir,
			StateDir: defaultStateDir,
		},
		Nginx: Nginx{
			ConfigCandidates:     candidates,
			ServerProcessPattern: defaultServerProcessPattern,
		},
		Cache: Cache{
			Backend: defaultCacheBackend,
			TTLDays: defaultCacheTTLDays,
		},
		Commands: Commands{
			Required: []string{"wget"},
			Optional: []string{"cpulimit"},
		},
		Engine: Engine{
			WalkTimeout:    defaultWalkTimeout,
			CommandTimeout: defaultCommandTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
