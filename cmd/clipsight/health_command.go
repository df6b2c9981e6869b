package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report daemon health and dependency checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				resp, err := client.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Daemon health", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, check := range resp.Checks {
					kind := statusOK
					if !check.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
				}
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Jobs: %d waiting, %d active, %d completed, %d failed\n",
					resp.Stats.Waiting, resp.Stats.Active, resp.Stats.Completed, resp.Stats.Failed)
				if !resp.Healthy {
					return fmt.Errorf("one or more health checks failed")
				}
				return nil
			})
		},
	}
}
