package testsupport

import (
	"testing"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/config"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/transient"
)

// MustOpenStore opens the transient store selected by cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...transient.Option) transient.Store {
	t.Helper()

	store, err := transient.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("transient.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
