package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/nginxconf"
	"github.com/psaux-it/nginx-fastcgi-cache-purge-preload-wordpress/internal/status"
)

type nginxInfo struct {
	ConfigPaths  []string             `json:"config_paths"`
	Preferred    string               `json:"preferred,omitempty"`
	CacheKeys    nginxconf.Directives `json:"cache_keys"`
	Unsupported  []string             `json:"unsupported_keys,omitempty"`
	CachePaths   []string             `json:"cache_paths,omitempty"`
	DeclaredUser string               `json:"declared_user,omitempty"`
	ServerUser   string               `json:"server_user"`
}

func newNginxCommand(ctx *commandContext) *cobra.Command {
	nginxCmd := &cobra.Command{
		Use:   "nginx",
		Short: "Inspect the nginx configuration",
	}
	nginxCmd.AddCommand(newNginxInfoCommand(ctx))
	return nginxCmd
}

func newNginxInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show located configs, cache keys, cache paths and the server user",
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := ctx.aggregator()
			if err != nil {
				return err
			}
			reqCtx := cmd.Context()

			info := nginxInfo{
				ConfigPaths: agg.Locator.LocateConfig(),
				CacheKeys:   agg.CacheKeys(reqCtx),
				CachePaths:  agg.NginxCachePaths(reqCtx),
				ServerUser:  agg.Identity.ServerUser(reqCtx),
			}
			if preferred, ok := agg.Locator.Preferred(); ok {
				info.Preferred = preferred
				if user, err := agg.Parser.ExtractUser(reqCtx, preferred); err == nil {
					info.DeclaredUser = user
				}
			}
			info.Unsupported = info.CacheKeys.Unsupported()

			if asJSON {
				return writeJSON(cmd, info)
			}

			na := status.NotFound.Label()
			orNA := func(values []string) string {
				if len(values) == 0 {
					return na
				}
				return strings.Join(values, "\n")
			}
			keys := na
			if info.CacheKeys.State == nginxconf.StateFound {
				keys = strings.Join(info.CacheKeys.Keys, "\n")
			}
			declared := info.DeclaredUser
			if declared == "" {
				declared = na
			}
			rows := [][]string{
				{"Config Files", orNA(info.ConfigPaths)},
				{"Cache Keys", keys},
				{"Unsupported Keys", orNA(info.Unsupported)},
				{"Cache Paths", orNA(info.CachePaths)},
				{"Declared User", declared},
				{"Web Server User", info.ServerUser},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("Nginx", []string{"Item", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
