package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/logging"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Clear memoized status checks whenever the nginx configuration changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := ctx.aggregator()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			paths := agg.Locator.LocateConfig()
			if len(paths) == 0 {
				return errors.New("no readable nginx.conf found; set nginx.config_candidates")
			}
			watcher, err := watch.New(paths, debounce, logger)
			if err != nil {
				return fmt.Errorf("watch nginx config: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("watching nginx configuration", logging.Any("paths", paths))
			return watch.Run(runCtx, watcher, func(ctx context.Context) error {
				if err := agg.ClearCache(ctx); err != nil {
					return err
				}
				logger.Info("nginx configuration changed; status checks cleared")
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period before a change is acted on")
	return cmd
}
