package state_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"poppo/internal/state"
	"poppo/internal/testsupport"
)

func TestAddRunningTaskStampsStartTime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	before := time.Now().Add(-time.Second)
	if err := store.AddRunningTask("task-1", state.TaskInfo{"issue": 12}); err != nil {
		t.Fatalf("AddRunningTask: %v", err)
	}

	tasks, err := store.LoadRunningTasks()
	if err != nil {
		t.Fatalf("LoadRunningTasks: %v", err)
	}
	info, ok := tasks["task-1"]
	if !ok {
		t.Fatal("task-1 missing")
	}
	started, ok := info.StartTime()
	if !ok {
		t.Fatal("startTime missing or unparsable")
	}
	if started.Before(before) || started.After(time.Now().Add(time.Second)) {
		t.Errorf("startTime %v outside expected window", started)
	}
}

func TestAddRunningTaskKeepsProvidedStartTime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Format(time.RFC3339)
	err := store.AddRunningTask("task-1", state.TaskInfo{state.StartTimeField: stamp})
	if err != nil {
		t.Fatalf("AddRunningTask: %v", err)
	}

	tasks, err := store.LoadRunningTasks()
	if err != nil {
		t.Fatalf("LoadRunningTasks: %v", err)
	}
	if got := tasks["task-1"][state.StartTimeField]; got != stamp {
		t.Errorf("startTime = %v, want %v", got, stamp)
	}
}

func TestAddRunningTaskRejectsBlankID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.AddRunningTask("  ", nil); err == nil {
		t.Fatal("expected error for blank task id")
	}
}

func TestRemoveRunningTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.AddRunningTask("task-1", nil); err != nil {
		t.Fatalf("AddRunningTask: %v", err)
	}
	if err := store.RemoveRunningTask("task-1"); err != nil {
		t.Fatalf("RemoveRunningTask: %v", err)
	}
	if err := store.RemoveRunningTask("task-1"); err != nil {
		t.Fatalf("remove of unknown id should be a no-op: %v", err)
	}

	tasks, err := store.LoadRunningTasks()
	if err != nil {
		t.Fatalf("LoadRunningTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("tasks = %v, want empty", tasks)
	}
}

func TestConcurrentAddRunningTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("task-%d", i)
			if err := store.AddRunningTask(id, state.TaskInfo{"worker": i}); err != nil {
				t.Errorf("add %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	tasks, err := store.LoadRunningTasks()
	if err != nil {
		t.Fatalf("LoadRunningTasks: %v", err)
	}
	if len(tasks) != workers {
		t.Errorf("task count = %d, want %d", len(tasks), workers)
	}
}

func TestCleanupStaleRunningTasks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	now := time.Now().UTC()
	seed := state.TaskMap{
		"fresh":   {state.StartTimeField: now.Add(-time.Hour).Format(time.RFC3339)},
		"expired": {state.StartTimeField: now.Add(-25 * time.Hour).Format(time.RFC3339)},
		"missing": {"issue": 3},
		"garbled": {state.StartTimeField: "not-a-time"},
	}
	if err := store.SaveRunningTasks(seed); err != nil {
		t.Fatalf("SaveRunningTasks: %v", err)
	}

	removed, err := store.CleanupStaleRunningTasks(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupStaleRunningTasks: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}

	tasks, err := store.LoadRunningTasks()
	if err != nil {
		t.Fatalf("LoadRunningTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("tasks = %v, want only fresh", tasks)
	}
	if _, ok := tasks["fresh"]; !ok {
		t.Errorf("fresh task was purged, remaining = %v", tasks)
	}
}

func TestCleanupStaleRunningTasksNothingToDo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.AddRunningTask("task-1", nil); err != nil {
		t.Fatalf("AddRunningTask: %v", err)
	}

	removed, err := store.CleanupStaleRunningTasks(24 * time.Hour)
	if err != nil {
		t.Fatalf("CleanupStaleRunningTasks: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}
