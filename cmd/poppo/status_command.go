package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"poppo/internal/lockfile"
	"poppo/internal/singleton"
	"poppo/internal/state"
)

type statusPayload struct {
	StateDir       string          `json:"state_dir"`
	DaemonRunning  bool            `json:"daemon_running"`
	DaemonHolder   *singleton.Info `json:"daemon_holder,omitempty"`
	Stats          state.Stats     `json:"stats"`
	LastRunRecord  state.LastRun   `json:"last_run,omitempty"`
	SingletonsPath string          `json:"singleton_lock_path"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state directory summary and daemon holder",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stats, err := store.Stats()
			if err != nil {
				return err
			}

			lockPath := filepath.Join(cfg.Paths.StateDir, singleton.DefaultLockName)
			single := singleton.New(lockPath, nil)
			holder, err := single.Holder()
			if err != nil {
				return err
			}
			running := holder != nil && lockfile.ProcessAlive(holder.PID)

			lastRun, err := store.LoadLastRun()
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				payload := statusPayload{
					StateDir:       store.Dir(),
					DaemonRunning:  running,
					Stats:          stats,
					LastRunRecord:  lastRun,
					SingletonsPath: lockPath,
				}
				if running {
					payload.DaemonHolder = holder
				}
				return writeJSON(cmd, payload)
			}

			rows := [][]string{
				{"State directory", store.Dir()},
				{"Daemon running", yesNo(running)},
			}
			if running {
				rows = append(rows,
					[]string{"Daemon PID", fmt.Sprintf("%d", holder.PID)},
					[]string{"Daemon host", holder.Hostname},
					[]string{"Daemon started", holder.StartTime},
				)
			}
			rows = append(rows,
				[]string{"Processed issues", fmt.Sprintf("%d", stats.ProcessedIssues)},
				[]string{"Processed comments", fmt.Sprintf("%d", stats.ProcessedComments)},
				[]string{"Running tasks", fmt.Sprintf("%d", stats.RunningTasks)},
				[]string{"Pending tasks", fmt.Sprintf("%d", stats.PendingTasks)},
			)
			if !stats.LastRunAt.IsZero() {
				rows = append(rows, []string{"Last audit", stats.LastRunAt.UTC().Format(time.RFC3339)})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderRows([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}
