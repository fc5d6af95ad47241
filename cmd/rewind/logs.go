package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rewindhq/rewind/internal/models"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show run logs across all tasks",
	RunE:  runLogs,
}

var allLogsLimit int

func init() {
	logsCmd.Flags().IntVar(&allLogsLimit, "limit", 50, "Maximum entries to show")
}

func runLogs(cmd *cobra.Command, args []string) error {
	resp, err := apiGet(fmt.Sprintf("/logs?limit=%d", allLogsLimit))
	if err != nil {
		return err
	}
	return printLogs(resp)
}

func printLogs(resp []byte) error {
	var entries []models.LogEntry
	if err := json.Unmarshal(resp, &entries); err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTASK\tSTATUS\tSTEPS\tDURATION\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%dms\t%s\n",
			e.ExecutedAt.Local().Format("Jan 2 15:04:05"),
			truncate(e.TaskName, 30),
			e.Status,
			e.CompletedSteps, e.TotalSteps,
			e.DurationMs,
			truncate(e.Message, 60))
	}
	w.Flush()
	return nil
}
