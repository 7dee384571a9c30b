package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newRootCommand() (*cobra.Command, *commandContext) {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "nppp",
		Short:         "Nginx FastCGI cache preload status and inspection",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newPreloadCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newNginxCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))

	return rootCmd, ctx
}

// execute runs the command tree and closes the transient store, including
// when the command fails.
func execute(cmd *cobra.Command, ctx *commandContext) error {
	err := cmd.Execute()
	return errors.Join(err, ctx.close())
}
