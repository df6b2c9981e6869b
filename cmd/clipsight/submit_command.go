package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipsight/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var transcript bool
	var analysis bool
	var webhook string
	var priority int

	cmd := &cobra.Command{
		Use:   "submit URL",
		Short: "Submit a media URL for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				resp, err := client.Submit(cmd.Context(), api.SubmitRequest{
					URL: args[0],
					Options: api.SubmitOptions{
						IncludeTranscript: transcript,
						IncludeAnalysis:   analysis,
						WebhookURL:        webhook,
						Priority:          priority,
					},
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Accepted job %s\n", resp.JobID)
				fmt.Fprintf(out, "Queue position: %d\n", resp.EstimatedPosition)
				fmt.Fprintf(out, "Check progress with `clipsight status %s`\n", resp.JobID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&transcript, "transcript", false, "Include the full transcript in the result")
	cmd.Flags().BoolVar(&analysis, "analysis", true, "Run content analysis on the transcript")
	cmd.Flags().StringVar(&webhook, "webhook", "", "URL to notify when processing finishes")
	cmd.Flags().IntVar(&priority, "priority", 0, "Job priority hint")
	return cmd
}
