package daemon_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"poppo/internal/config"
	"poppo/internal/daemon"
	"poppo/internal/logging"
	"poppo/internal/singleton"
	"poppo/internal/state"
	"poppo/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *state.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, store
}

func TestStartAndStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Error("Running() = false after Start")
	}

	lockPath := filepath.Join(cfg.Paths.StateDir, singleton.DefaultLockName)
	if _, err := os.Stat(lockPath); err != nil {
		t.Errorf("singleton lock missing while running: %v", err)
	}

	d.Stop()
	if d.Running() {
		t.Error("Running() = true after Stop")
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Errorf("singleton lock should be gone after Stop, stat err = %v", err)
	}
}

func TestStartRefusedWhileForeignInstanceRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	// A live holder that is not this process. PID 1 always exists.
	holder, err := json.Marshal(singleton.Info{
		PID:       1,
		StartTime: time.Now().UTC().Format(time.RFC3339),
		Hostname:  "elsewhere",
	})
	if err != nil {
		t.Fatalf("marshal holder: %v", err)
	}
	lockPath := filepath.Join(cfg.Paths.StateDir, singleton.DefaultLockName)
	if err := os.WriteFile(lockPath, holder, 0o644); err != nil {
		t.Fatalf("seed holder: %v", err)
	}

	if err := d.Start(context.Background()); err == nil {
		d.Stop()
		t.Fatal("Start should fail while another instance holds the singleton")
	}
}

func TestStartRunsImmediateAudit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newDaemon(t, cfg)

	// Seed a stale task so the startup audit has something to purge.
	stale := state.TaskMap{
		"leftover": {state.StartTimeField: time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)},
	}
	if err := store.SaveRunningTasks(stale); err != nil {
		t.Fatalf("SaveRunningTasks: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	tasks, err := store.LoadRunningTasks()
	if err != nil {
		t.Fatalf("LoadRunningTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("stale task survived the startup audit: %v", tasks)
	}

	record, err := store.LoadLastRun()
	if err != nil {
		t.Fatalf("LoadLastRun: %v", err)
	}
	if record["runId"] == nil {
		t.Error("last-run record missing runId")
	}
	if record["valid"] != true {
		t.Errorf("last-run valid = %v, want true", record["valid"])
	}
	if _, ok := record.Timestamp(); !ok {
		t.Error("last-run record missing timestamp")
	}
}

func TestRestartAfterStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	d.Stop()

	replacement, _ := newDaemon(t, cfg)
	if err := replacement.Start(context.Background()); err != nil {
		t.Fatalf("Start after Stop: %v", err)
	}
	replacement.Stop()
}
