package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newIssuesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Inspect and update the processed-issue set",
	}
	cmd.AddCommand(newIssuesListCommand(ctx))
	cmd.AddCommand(newIssuesAddCommand(ctx))
	cmd.AddCommand(newIssuesCheckCommand(ctx))
	return cmd
}

func newIssuesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List processed issue numbers",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			set, err := store.LoadProcessedIssues()
			if err != nil {
				return err
			}
			issues := set.Sorted()

			if ctx.jsonOutput() {
				return writeJSON(cmd, issues)
			}
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No processed issues recorded.")
				return nil
			}
			rows := make([][]string, 0, len(issues))
			for _, issue := range issues {
				comments, err := store.ProcessedCommentsForIssue(issue)
				if err != nil {
					return err
				}
				rows = append(rows, []string{strconv.Itoa(issue), strconv.Itoa(len(comments))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRows(
				[]string{"Issue", "Comments"},
				rows,
				[]columnAlignment{alignRight, alignRight},
			))
			return nil
		},
	}
}

func newIssuesAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <issue-number>",
		Short: "Mark an issue as processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issue, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("issue number %q is not an integer", args[0])
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			if err := store.AddProcessedIssue(issue); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Issue %d marked as processed.\n", issue)
			return nil
		},
	}
}

func newIssuesCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <issue-number>",
		Short: "Report whether an issue has been processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issue, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("issue number %q is not an integer", args[0])
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			processed, err := store.IsIssueProcessed(issue)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"issue": issue, "processed": processed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Issue %d processed: %s\n", issue, yesNo(processed))
			return nil
		},
	}
}
