package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// compatModes are the subcommands reachable through --mode.
var compatModes = map[string]struct{}{
	"init":    {},
	"sync":    {},
	"refresh": {},
	"report":  {},
	"rename":  {},
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var urlFlag string
	var modeFlag string

	ctx := newCommandContext(&configFlag, &urlFlag)

	rootCmd := &cobra.Command{
		Use:           "plarchive",
		Short:         "Mirror a YouTube playlist into a local archive with a ledger",
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
			mode := strings.ToLower(strings.TrimSpace(modeFlag))
			if mode == "" {
				return cmd.Help()
			}
			return dispatchMode(cmd, mode, args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&urlFlag, "url", "", "Playlist URL (overrides source.playlist_url)")
	rootCmd.Flags().StringVar(&modeFlag, "mode", "", "Run a mode by name: init, sync, refresh, report, rename")

	rootCmd.AddCommand(newInitCommand(ctx))
	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newRefreshCommand(ctx))
	rootCmd.AddCommand(newReportCommand(ctx))
	rootCmd.AddCommand(newRenameCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

// dispatchMode runs the subcommand named by --mode with its default flags.
func dispatchMode(root *cobra.Command, mode string, args []string) error {
	if _, ok := compatModes[mode]; !ok {
		return fmt.Errorf("unknown mode %q (expected init, sync, refresh, report or rename)", mode)
	}
	sub, _, err := root.Find([]string{mode})
	if err != nil || sub == root || sub.RunE == nil {
		return fmt.Errorf("mode %q is not available", mode)
	}
	sub.SetContext(root.Context())
	return sub.RunE(sub, args)
}
