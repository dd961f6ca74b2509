package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending jobs in dispatch order",
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload queuePayload
			path := fmt.Sprintf("/api/queue?limit=%d", limit)
			if err := fetchJSON(cmd.Context(), ctx.apiAddr(), path, &payload); err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(payload.Jobs) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}

			rows := make([][]string, 0, len(payload.Jobs))
			for i, job := range payload.Jobs {
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					job.JobID,
					fmt.Sprintf("%d", job.Priority),
					job.EnqueuedAt,
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"#", "Job ID", "Priority", "Enqueued"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(stdout, "%d pending job(s)\n", payload.Stats.Depth)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of jobs to list")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all pending jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to clear the queue without --force")
			}
			cfg := ctx.configValue()
			if cfg == nil {
				return fmt.Errorf("no configuration available")
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}
			defer store.Close()

			removed, err := store.Clear(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm clearing every pending job")
	return cmd
}
