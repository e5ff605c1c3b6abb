package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and maintain the running-task map",
	}
	cmd.AddCommand(newTasksListCommand(ctx))
	cmd.AddCommand(newTasksRemoveCommand(ctx))
	cmd.AddCommand(newTasksCleanupCommand(ctx))
	return cmd
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List running tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			tasks, err := store.LoadRunningTasks()
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, tasks)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No running tasks.")
				return nil
			}

			ids := make([]string, 0, len(tasks))
			for id := range tasks {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				started := "unknown"
				age := "-"
				if ts, ok := tasks[id].StartTime(); ok {
					started = ts.UTC().Format(time.RFC3339)
					age = time.Since(ts).Round(time.Second).String()
				}
				rows = append(rows, []string{id, started, age})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRows(
				[]string{"Task", "Started", "Age"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newTasksRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <task-id>",
		Short: "Remove a running-task entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			if err := store.RemoveRunningTask(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s removed.\n", args[0])
			return nil
		},
	}
}

func newTasksCleanupCommand(ctx *commandContext) *cobra.Command {
	var maxAgeHours int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge stale running-task entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			maxAge := cfg.TaskMaxAge()
			if maxAgeHours > 0 {
				maxAge = time.Duration(maxAgeHours) * time.Hour
			}
			removed, err := store.CleanupStaleRunningTasks(maxAge)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"removed": removed, "max_age": maxAge.String()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale task(s) (max age %s).\n", removed, maxAge)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxAgeHours, "max-age-hours", 0, "Override the configured retention window")
	return cmd
}
