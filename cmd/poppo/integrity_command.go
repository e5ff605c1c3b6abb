package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIntegrityCommand(ctx *commandContext) *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "integrity",
		Short: "Audit document shapes and sweep abandoned locks",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}

			report := store.CheckIntegrity()
			if repair && !report.Valid {
				if err := store.Repair(); err != nil {
					return fmt.Errorf("repair: %w", err)
				}
				report = store.CheckIntegrity()
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Documents checked: %d\n", report.DocumentsChecked)
				fmt.Fprintf(cmd.OutOrStdout(), "Stale locks removed: %d\n", report.StaleLocksRemoved)
				if report.Valid {
					fmt.Fprintln(cmd.OutOrStdout(), "State directory is healthy.")
				} else {
					for _, problem := range report.Problems {
						fmt.Fprintf(cmd.OutOrStdout(), "Problem: %s\n", problem)
					}
				}
			}

			if !report.Valid {
				return fmt.Errorf("integrity check found %d problem(s)", len(report.Problems))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "Rewrite damaged documents with their empty value")
	return cmd
}

func newStateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Low-level state directory maintenance",
	}

	var confirmed bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Rewrite every document with its empty value",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("state reset discards all records; re-run with --yes to confirm")
			}
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			if err := store.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "State documents reset.")
			return nil
		},
	}
	reset.Flags().BoolVar(&confirmed, "yes", false, "Confirm the reset")

	cmd.AddCommand(reset)
	return cmd
}
