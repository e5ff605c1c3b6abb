package state_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"poppo/internal/lockfile"
	"poppo/internal/state"
	"poppo/internal/testsupport"
)

// deadPID returns a PID that belonged to an already-exited process.
func deadPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run helper process: %v", err)
	}
	return cmd.Process.Pid
}

func TestCheckIntegrityHealthyStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	report := store.CheckIntegrity()
	if !report.Valid {
		t.Errorf("fresh store reported invalid: %v", report.Problems)
	}
	if report.DocumentsChecked != len(state.Documents) {
		t.Errorf("documents checked = %d, want %d", report.DocumentsChecked, len(state.Documents))
	}
	if report.StaleLocksRemoved != 0 {
		t.Errorf("stale locks removed = %d, want 0", report.StaleLocksRemoved)
	}
}

func TestCheckIntegrityReportsMalformedDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	path := filepath.Join(store.Dir(), state.DocRunningTasks)
	if err := os.WriteFile(path, []byte(`["wrong","shape"]`), 0o644); err != nil {
		t.Fatalf("corrupt document: %v", err)
	}

	report := store.CheckIntegrity()
	if report.Valid {
		t.Fatal("report should be invalid")
	}
	found := false
	for _, problem := range report.Problems {
		if strings.Contains(problem, state.DocRunningTasks) {
			found = true
		}
	}
	if !found {
		t.Errorf("problems %v do not mention %s", report.Problems, state.DocRunningTasks)
	}
}

func TestCheckIntegrityReportsMissingDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := os.Remove(filepath.Join(store.Dir(), state.DocLastRun)); err != nil {
		t.Fatalf("remove document: %v", err)
	}

	report := store.CheckIntegrity()
	if report.Valid {
		t.Fatal("report should be invalid")
	}
}

func TestRepairRestoresDamagedStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := os.Remove(filepath.Join(store.Dir(), state.DocLastRun)); err != nil {
		t.Fatalf("remove document: %v", err)
	}
	badPath := filepath.Join(store.Dir(), state.DocProcessedIssues)
	if err := os.WriteFile(badPath, []byte("{ invalid"), 0o644); err != nil {
		t.Fatalf("corrupt document: %v", err)
	}

	if err := store.Repair(); err != nil {
		t.Fatalf("Repair: %v", err)
	}

	report := store.CheckIntegrity()
	if !report.Valid {
		t.Errorf("store still invalid after repair: %v", report.Problems)
	}
}

func TestSweepRemovesOrphanedLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	path := filepath.Join(store.LockDir(), "orphan"+lockfile.Suffix)
	if err := os.WriteFile(path, []byte(strconv.Itoa(deadPID(t))), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("age lock: %v", err)
	}

	report := store.CheckIntegrity()
	if report.StaleLocksRemoved != 1 {
		t.Errorf("stale locks removed = %d, want 1", report.StaleLocksRemoved)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("orphaned lock still present, stat err = %v", err)
	}
	if !report.Valid {
		t.Errorf("sweeping an orphan should not invalidate the report: %v", report.Problems)
	}
}

func TestSweepKeepsFreshLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	path := filepath.Join(store.LockDir(), "busy"+lockfile.Suffix)
	if err := os.WriteFile(path, []byte(strconv.Itoa(deadPID(t))), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	report := store.CheckIntegrity()
	if report.StaleLocksRemoved != 0 {
		t.Errorf("stale locks removed = %d, want 0", report.StaleLocksRemoved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("fresh lock was removed: %v", err)
	}
}

func TestSweepReportsLiveHolderPastThreshold(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	path := filepath.Join(store.LockDir(), "held"+lockfile.Suffix)
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("age lock: %v", err)
	}

	report := store.CheckIntegrity()
	if report.StaleLocksRemoved != 0 {
		t.Errorf("stale locks removed = %d, want 0", report.StaleLocksRemoved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("live holder's lock was removed: %v", err)
	}
	if report.Valid {
		t.Error("long-held live lock should be reported as a problem")
	}
}

func TestStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.AddProcessedIssue(1); err != nil {
		t.Fatalf("AddProcessedIssue: %v", err)
	}
	if err := store.AddProcessedComment(1, "c-1"); err != nil {
		t.Fatalf("AddProcessedComment: %v", err)
	}
	if err := store.AddProcessedComment(1, "c-2"); err != nil {
		t.Fatalf("AddProcessedComment: %v", err)
	}
	if err := store.AddRunningTask("task-1", nil); err != nil {
		t.Fatalf("AddRunningTask: %v", err)
	}
	if err := store.SavePendingTasks(state.TaskList{{"id": "p-1"}}); err != nil {
		t.Fatalf("SavePendingTasks: %v", err)
	}
	if err := store.SaveLastRun(state.LastRun{"runId": "r"}); err != nil {
		t.Fatalf("SaveLastRun: %v", err)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ProcessedIssues != 1 {
		t.Errorf("ProcessedIssues = %d, want 1", stats.ProcessedIssues)
	}
	if stats.ProcessedComments != 2 {
		t.Errorf("ProcessedComments = %d, want 2", stats.ProcessedComments)
	}
	if stats.RunningTasks != 1 {
		t.Errorf("RunningTasks = %d, want 1", stats.RunningTasks)
	}
	if stats.PendingTasks != 1 {
		t.Errorf("PendingTasks = %d, want 1", stats.PendingTasks)
	}
	if stats.LastRunAt.IsZero() {
		t.Error("LastRunAt should be set")
	}
}
