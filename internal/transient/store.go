package transient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/config"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("transient store closed")

// Record is one stored check result. A zero ExpiresAt never expires.
type Record struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Store persists records. Expired records read as absent. Implementations
// are safe for concurrent use; the last write to a key wins.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Set(ctx context.Context, record Record) error
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key, expired or not.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Option customizes stores and caches.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open constructs the store selected by cfg.Cache.Backend.
func Open(cfg *config.Config, opts ...Option) (Store, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		return NewMemoryStore(opts...), nil
	case config.CacheBackendLevelDB:
		return OpenLevelStore(cfg.Cache.Path, opts...)
	case config.CacheBackendSQLite, "":
		return OpenSQLiteStore(cfg.Cache.Path, opts...)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}
}
