package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"upload-ai/internal/diagnostics"
)

func newDiagnosticsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics",
		Short: "Check the ffmpeg engine, API URL and local directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}

			report := diagnostics.NewChecker().Run(settings)
			rows := make([][]string, 0, len(report.Items))
			for _, item := range report.Items {
				rows = append(rows, []string{item.Name, string(item.Status), item.Message, item.Hint})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "Status", "Message", "Hint"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))

			if report.HasFailures {
				return errors.New("diagnostics reported failures")
			}
			return nil
		},
	}
}
