package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/monitor"
)

func newWorkersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "workers",
		Short: "List workers known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload workersPayload
			if err := fetchJSON(cmd.Context(), ctx.apiAddr(), "/api/workers", &payload); err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(payload.Workers) == 0 {
				fmt.Fprintln(stdout, "No workers registered")
				return nil
			}
			fmt.Fprintln(stdout, renderWorkerTable(payload.Workers))
			if payload.DroppedEvents > 0 {
				fmt.Fprintf(stdout, "%d status events dropped under backpressure\n", payload.DroppedEvents)
			}
			return nil
		},
	}
}

func renderWorkerTable(workers []monitor.WorkerRecord) string {
	if len(workers) == 0 {
		return "  (no workers)"
	}

	rows := make([][]string, 0, len(workers))
	for _, w := range workers {
		lastSeen := "never"
		if !w.LastSeen.IsZero() {
			lastSeen = w.LastSeen.UTC().Format(time.RFC3339)
		}
		current := w.CurrentJobID
		if current == "" {
			current = "-"
		}
		rows = append(rows, []string{
			w.WorkerID,
			string(w.State),
			fmt.Sprintf("%d", w.Processed),
			fmt.Sprintf("%d", w.Errors),
			current,
			lastSeen,
		})
	}

	return renderTable(
		[]string{"Worker", "State", "Processed", "Errors", "Current Job", "Last Seen"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}
