package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plarchive/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the ledger, the playlist URL and external binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			problems := 0

			checks := preflight.RunAll(cfg)
			checkRows := make([][]string, 0, len(checks))
			for _, check := range checks {
				status := "ok"
				if !check.Passed {
					status = "FAIL"
					problems++
				}
				checkRows = append(checkRows, []string{check.Name, status, check.Detail})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Check", "Status", "Detail"}, checkRows, nil))

			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			depRows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				detail := status.Version
				switch {
				case !status.Available && status.Optional:
					state = "missing"
					detail = status.Detail
				case !status.Available:
					state = "FAIL"
					detail = status.Detail
					problems++
				}
				depRows = append(depRows, []string{status.Name, yesNo(!status.Optional), state, detail, status.Description})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Binary", "Required", "Status", "Detail", "Purpose"}, depRows, nil))

			if problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
