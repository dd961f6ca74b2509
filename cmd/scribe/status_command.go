package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and worker status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status statusPayload
			if err := fetchJSON(cmd.Context(), ctx.apiAddr(), "/api/status", &status); err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			runningKind := statusError
			runningDetail := "stopped"
			if status.Running {
				runningKind = statusOK
				runningDetail = fmt.Sprintf("pid %d", status.PID)
			}
			fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, runningDetail, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Queue DB", statusInfo, status.QueueDBPath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(stdout, line)
			}
			depthKind := statusOK
			if status.Queue.Depth > 0 {
				depthKind = statusInfo
			}
			fmt.Fprintln(stdout, renderStatusLine("Pending jobs", depthKind, fmt.Sprintf("%d", status.Queue.Depth), colorize))
			if status.Queue.Depth > 0 {
				fmt.Fprintln(stdout, renderStatusLine("Priorities", statusInfo,
					fmt.Sprintf("%d..%d", status.Queue.MinPriority, status.Queue.MaxPriority), colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Workers", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderWorkerTable(status.Workers))
			if status.DroppedEvents > 0 {
				fmt.Fprintln(stdout, renderStatusLine("Dropped events", statusWarn,
					fmt.Sprintf("%d", status.DroppedEvents), colorize))
			}
			if len(status.Incomplete) > 0 {
				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Incomplete Jobs", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, job := range status.Incomplete {
					fmt.Fprintln(stdout, renderStatusLine(job.JobIDStr, statusWarn,
						fmt.Sprintf("was on %s", job.WorkerID), colorize))
				}
			}
			return nil
		},
	}
}
