package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"plarchive/internal/bootstrap"
	"plarchive/internal/refresh"
	"plarchive/internal/rename"
	"plarchive/internal/syncer"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Build the ledger by matching the existing archive against the playlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runMode(cmd, "init", true, func(runCtx context.Context, env *runEnv) error {
				client, err := env.ytdlpClient()
				if err != nil {
					return err
				}
				runner := bootstrap.New(env.cfg, env.store, client, env.logger)
				res, err := runner.Run(runCtx, env.cfg.Source.PlaylistURL, bootstrap.Options{Force: force})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Listed %d remote items, scanned %d local files\n", res.Listed, res.Scanned)
				fmt.Fprintf(out, "Matched %d into %s\n", res.Matched, env.store.Path())
				fmt.Fprintf(out, "Unmatched remote: %d (%s)\n", res.UnmatchedRemote, res.RemoteReport)
				fmt.Fprintf(out, "Unmatched local:  %d (%s)\n", res.UnmatchedLocal, res.LocalReport)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild the ledger even if one already exists")
	return cmd
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Archive playlist items that are not in the ledger yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}
			return ctx.runMode(cmd, "sync", true, func(runCtx context.Context, env *runEnv) error {
				client, err := env.ytdlpClient()
				if err != nil {
					return err
				}
				engine := syncer.New(env.cfg, env.store, client, client, env.logger)
				summary, err := engine.Run(runCtx, env.cfg.Source.PlaylistURL, syncer.Options{Limit: limit})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Listed %d, missing %d, archived %d, failed %d\n",
					summary.Listed, summary.Missing, summary.Archived, summary.Failed)
				if len(summary.FailedIDs) > 0 {
					fmt.Fprintf(out, "Failed: %s (rerun sync to retry)\n", strings.Join(summary.FailedIDs, ", "))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Process at most N missing items (0 = all)")
	return cmd
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-check every ledger entry for removal and title changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runMode(cmd, "refresh", true, func(runCtx context.Context, env *runEnv) error {
				client, err := env.ytdlpClient()
				if err != nil {
					return err
				}
				engine := refresh.New(env.cfg, env.store, client, env.logger)
				summary, err := engine.Run(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Checked %d, newly deleted %d, retitled %d, errors %d\n",
					summary.Checked, summary.Deleted, summary.Retitled, summary.Errored)
				return nil
			})
		},
	}
}

func newRenameCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename archived files to \"<title> [<id>]\" and update the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runMode(cmd, "rename", true, func(runCtx context.Context, env *runEnv) error {
				res, err := rename.Run(runCtx, env.store, env.logger, rename.Options{DryRun: dryRun})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if dryRun {
					if len(res.Plans) == 0 {
						fmt.Fprintln(out, "No renames needed")
						return nil
					}
					rows := make([][]string, 0, len(res.Plans))
					for _, plan := range res.Plans {
						rows = append(rows, []string{plan.ID, plan.From, plan.To})
					}
					fmt.Fprintln(out, renderTable(out, []string{"ID", "From", "To"}, rows, nil))
					fmt.Fprintf(out, "%d renames planned, %d skipped (dry run)\n", len(res.Plans), res.Skipped)
					return nil
				}
				fmt.Fprintf(out, "Renamed %d, skipped %d\n", res.Renamed, res.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List planned renames without touching files or the ledger")
	return cmd
}
