package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobsCommand(cmdCtx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List transcription jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			jobs, err := newAPIClient(cfg).listJobs(statusFilters)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs.")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				detail := job.ErrorKind
				if detail == "" {
					detail = "-"
				}
				rows = append(rows, []string{
					job.ID,
					job.SourceName,
					job.ResponseFormat,
					job.Status,
					detail,
					job.CreatedAt,
				})
			}

			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Source", "Format", "Status", "Error", "Created"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (pending, running, completed, failed)")
	return cmd
}
