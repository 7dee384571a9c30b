package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/status"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the nginx cache and clear memoized status checks",
	}

	cacheCmd.AddCommand(newCacheCountCommand(ctx))
	cacheCmd.AddCommand(newCacheURLsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheCountCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count the pages stored in the nginx cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := ctx.aggregator()
			if err != nil {
				return err
			}
			// The permission row primes the flag the count is gated on.
			agg.PermissionFor(cmd.Context(), status.GatePermission)
			count := agg.PagesInCache(cmd.Context())
			if asJSON {
				return writeJSON(cmd, count)
			}
			out := cmd.OutOrStdout()
			if count.Counted() {
				fmt.Fprintln(out, humanize.Comma(int64(count.Count)))
				return nil
			}
			fmt.Fprintln(out, count.Status.Label())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCacheURLsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var limit int

	cmd := &cobra.Command{
		Use:   "urls",
		Short: "List the URLs stored in the nginx cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := ctx.aggregator()
			if err != nil {
				return err
			}
			entries, code := agg.CachedURLs(cmd.Context())
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			if asJSON {
				return writeJSON(cmd, struct {
					Status  status.Code `json:"status"`
					Entries any         `json:"entries"`
				}{code, entries})
			}
			out := cmd.OutOrStdout()
			if code != status.Found {
				fmt.Fprintln(out, code.Label())
				return nil
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No cached pages")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for i, entry := range entries {
				rows = append(rows, []string{strconv.Itoa(i + 1), entry.URL(), entry.Path})
			}
			fmt.Fprintln(out, renderTable("", []string{"#", "URL", "Cache File"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many URLs")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the memoized status checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := ctx.aggregator()
			if err != nil {
				return err
			}
			err = agg.ClearCache(cmd.Context())
			out := cmd.OutOrStdout()
			kind := statusOK
			if err != nil {
				kind = statusError
			}
			fmt.Fprintln(out, renderStatusLine("Plugin cache", kind, status.ClearCacheMessage(err), shouldColorize(out)))
			return nil
		},
	}
}
