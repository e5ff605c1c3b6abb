package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"poppo/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and scaffold configuration",
	}
	cmd.AddCommand(newConfigShowCommand(ctx))
	cmd.AddCommand(newConfigInitCommand())
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, cfg)
			}
			rows := [][]string{
				{"paths.state_dir", cfg.Paths.StateDir},
				{"paths.log_dir", cfg.Paths.LogDir},
				{"locks.timeout_ms", fmt.Sprintf("%d", cfg.Locks.TimeoutMS)},
				{"locks.poll_interval_ms", fmt.Sprintf("%d", cfg.Locks.PollIntervalMS)},
				{"locks.stale_after_minutes", fmt.Sprintf("%d", cfg.Locks.StaleAfterMinutes)},
				{"tasks.max_age_hours", fmt.Sprintf("%d", cfg.Tasks.MaxAgeHours)},
				{"audit.enabled", yesNo(cfg.Audit.Enabled)},
				{"audit.schedule", cfg.Audit.Schedule},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRows([]string{"Setting", "Value"}, rows, nil))
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var pathFlag string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := pathFlag
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			expanded, err := config.ExpandPath(path)
			if err != nil {
				return err
			}
			if err := config.CreateSample(expanded); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", expanded)
			return nil
		},
	}
	cmd.Flags().StringVar(&pathFlag, "path", "", "Destination path (default: the standard config location)")
	return cmd
}
