package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"clipsight/internal/queue"
)

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}

func rightAlign(columns ...int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, len(columns))
	for _, number := range columns {
		configs = append(configs, table.ColumnConfig{
			Number:      number,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	return configs
}

func renderJobsTable(jobs []queue.Snapshot) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"ID", "URL", "Status", "Progress", "Attempts", "Created"})
	for _, job := range jobs {
		tw.AppendRow(table.Row{
			job.ID,
			truncate(job.URL, 48),
			string(job.Status),
			fmt.Sprintf("%d%%", job.Progress),
			fmt.Sprintf("%d/%d", job.Attempts, job.MaxAttempts),
			job.CreatedAt.Local().Format(time.DateTime),
		})
	}
	tw.SetColumnConfigs(rightAlign(4, 5))
	return tw.Render()
}

func renderStatsTable(stats queue.Stats) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{"Status", "Count"})
	tw.AppendRows([]table.Row{
		{"waiting", stats.Waiting},
		{"active", stats.Active},
		{"completed", stats.Completed},
		{"failed", stats.Failed},
	})
	tw.AppendFooter(table.Row{"total", stats.Total})
	tw.SetColumnConfigs(rightAlign(2))
	return tw.Render()
}
