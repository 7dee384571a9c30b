package transient

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/logging"
)

// DefaultTTL keeps check results for a month; they only change when
// configuration changes, which triggers an explicit clear.
const DefaultTTL = 30 * 24 * time.Hour

// Cache stores JSON-encoded values of type T in a Store.
type Cache[T any] struct {
	store  Store
	logger *slog.Logger
	opts   options
	group  singleflight.Group
}

// NewCache wraps store. A nil logger discards log output.
func NewCache[T any](store Store, logger *slog.Logger, opts ...Option) *Cache[T] {
	return &Cache[T]{
		store:  store,
		logger: logging.NewComponentLogger(logger, "transient"),
		opts:   buildOptions(opts),
	}
}

// Peek returns the stored value for key without computing it. Store and
// decode failures read as a miss.
func (c *Cache[T]) Peek(ctx context.Context, key string) (T, bool) {
	var zero T
	if c == nil || c.store == nil {
		return zero, false
	}
	record, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Debug("transient read failed", logging.String(logging.FieldCacheKey, key), logging.Error(err))
		return zero, false
	}
	if !ok || record.Expired(c.opts.now()) {
		return zero, false
	}
	var value T
	if err := json.Unmarshal(record.Value, &value); err != nil {
		c.logger.Debug("transient decode failed", logging.String(logging.FieldCacheKey, key), logging.Error(err))
		return zero, false
	}
	return value, true
}

// GetOrCompute returns the cached value for key, or calls fn, stores its
// result for ttl and returns it. Concurrent misses for the same key share
// one call. Errors from fn are returned and not cached.
func (c *Cache[T]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if value, ok := c.Peek(ctx, key); ok {
		return value, nil
	}
	result, err, _ := c.group.Do(key, func() (any, error) {
		if value, ok := c.Peek(ctx, key); ok {
			return value, nil
		}
		value, err := fn(ctx)
		if err != nil {
			return value, err
		}
		c.Set(ctx, key, value, ttl)
		return value, nil
	})
	value, _ := result.(T)
	return value, err
}

// Set stores value for ttl. A non-positive ttl never expires. Write failures
// are logged and otherwise ignored.
func (c *Cache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) {
	if c == nil || c.store == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Debug("transient encode failed", logging.String(logging.FieldCacheKey, key), logging.Error(err))
		return
	}
	record := Record{Key: key, Value: payload}
	if ttl > 0 {
		record.ExpiresAt = c.opts.now().Add(ttl)
	}
	if err := c.store.Set(ctx, record); err != nil {
		logging.WarnWithContext(c.logger, "transient write failed", "transient_write_failed",
			logging.String(logging.FieldCacheKey, key),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the check will be recomputed on the next status request"))
	}
}

// Delete removes key from the store.
func (c *Cache[T]) Delete(ctx context.Context, key string) error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Delete(ctx, key)
}
