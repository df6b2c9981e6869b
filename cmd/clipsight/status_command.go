package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipsight/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var showResult bool

	cmd := &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Show the status of a submitted job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				resp, err := client.Job(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				renderJob(cmd, resp.Job, showResult)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showResult, "result", false, "Print the full result payload for terminal jobs")
	return cmd
}

func renderJob(cmd *cobra.Command, job queue.Snapshot, showResult bool) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintf(out, "Job %s\n", job.ID)
	fmt.Fprintln(out, renderStatusLine("URL", statusInfo, job.URL, colorize))
	fmt.Fprintln(out, renderStatusLine("Status", statusKindFor(job.Status), string(job.Status), colorize))
	fmt.Fprintln(out, renderStatusLine("Progress", statusInfo, formatProgress(job), colorize))
	fmt.Fprintln(out, renderStatusLine("Attempts", statusInfo, fmt.Sprintf("%d/%d", job.Attempts, job.MaxAttempts), colorize))
	fmt.Fprintln(out, renderStatusLine("Created", statusInfo, job.CreatedAt.Local().Format(time.RFC3339), colorize))
	if job.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusError, job.LastError, colorize))
	}

	if job.Result != nil {
		fmt.Fprintln(out, renderStatusLine("Title", statusInfo, job.Result.Media.Title, colorize))
		if job.Result.Analysis != nil {
			kind := statusOK
			detail := job.Result.Analysis.Summary
			if job.Result.Analysis.Degraded() {
				kind = statusWarn
				detail = job.Result.Analysis.Error
			}
			fmt.Fprintln(out, renderStatusLine("Analysis", kind, detail, colorize))
		}
	}

	if showResult && job.Result != nil {
		fmt.Fprintln(out)
		writeJSON(cmd, job.Result) //nolint:errcheck
	}
}

func formatProgress(job queue.Snapshot) string {
	value := fmt.Sprintf("%d%%", job.Progress)
	if job.ProgressStage != "" {
		value += " (" + strings.ReplaceAll(job.ProgressStage, "_", " ") + ")"
	}
	return value
}

func statusKindFor(status queue.Status) statusKind {
	switch status {
	case queue.StatusCompleted:
		return statusOK
	case queue.StatusFailed:
		return statusError
	case queue.StatusActive:
		return statusInfo
	default:
		return statusWarn
	}
}
