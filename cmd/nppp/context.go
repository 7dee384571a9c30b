package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/config"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/inspect"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/logging"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/status"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/transient"
)

// newInspector builds the host inspector; tests replace it with a fake.
var newInspector = func(cfg *config.Config, logger *slog.Logger) inspect.Inspector {
	return inspect.NewShell(cfg.CommandTimeout(), logger)
}

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	storeMu sync.Mutex
	store   transient.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// ensureStore opens the transient store once per invocation.
func (c *commandContext) ensureStore() (transient.Store, error) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := transient.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open transient store: %w", err)
	}
	c.store = store
	return store, nil
}

func (c *commandContext) aggregator() (*status.Aggregator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	store, err := c.ensureStore()
	if err != nil {
		return nil, err
	}
	return status.New(cfg, store, newInspector(cfg, logger), logger)
}

func (c *commandContext) close() error {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
