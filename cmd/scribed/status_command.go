package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			status, err := newAPIClient(cfg).status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon: running (%s)\n", cfg.Paths.APIBind)
			fmt.Fprintln(out, renderTable(
				[]string{"Total", "Pending", "Running", "Completed", "Failed"},
				[][]string{{
					strconv.Itoa(status.Queue.Total),
					strconv.Itoa(status.Queue.Pending),
					strconv.Itoa(status.Queue.Running),
					strconv.Itoa(status.Queue.Completed),
					strconv.Itoa(status.Queue.Failed),
				}},
			))
			return nil
		},
	}
}
