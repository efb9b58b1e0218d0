package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"plarchive/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Summarize the ledger and export deleted items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runMode(cmd, "report", false, func(runCtx context.Context, env *runEnv) error {
				res, err := report.Generate(runCtx, env.store, env.cfg.Paths.ReportDir)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderSummary(out, res.Summary))
				fmt.Fprintf(out, "Wrote %d deleted entries to %s\n", res.DeletedRows, res.DeletedPath)
				return nil
			})
		},
	}
}

func renderSummary(out io.Writer, summary report.Summary) string {
	totals := renderTable(out,
		[]string{"Total", "Active", "Deleted"},
		[][]string{{strconv.Itoa(summary.Total), strconv.Itoa(summary.Active), strconv.Itoa(summary.Deleted)}},
		[]columnAlignment{alignRight, alignRight, alignRight},
	)
	if len(summary.Groups) == 0 {
		return totals + "\n"
	}

	rows := make([][]string, 0, len(summary.Groups))
	for _, group := range summary.Groups {
		name := group.GroupName
		if name == "" {
			name = "(unknown)"
		}
		rows = append(rows, []string{
			name,
			group.GroupID,
			strconv.Itoa(group.Active),
			strconv.Itoa(group.Deleted),
			strconv.Itoa(group.Total()),
		})
	}
	groups := renderTable(out,
		[]string{"Channel", "Channel ID", "Active", "Deleted", "Total"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	)
	return totals + "\n" + groups + "\n"
}
