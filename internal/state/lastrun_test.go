package state_test

import (
	"reflect"
	"testing"
	"time"

	"poppo/internal/state"
	"poppo/internal/testsupport"
)

func TestSaveLastRunStampsTimestamp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	before := time.Now().Add(-time.Second)
	if err := store.SaveLastRun(state.LastRun{"runId": "abc"}); err != nil {
		t.Fatalf("SaveLastRun: %v", err)
	}

	record, err := store.LoadLastRun()
	if err != nil {
		t.Fatalf("LoadLastRun: %v", err)
	}
	if record["runId"] != "abc" {
		t.Errorf("runId = %v, want abc", record["runId"])
	}
	ts, ok := record.Timestamp()
	if !ok {
		t.Fatal("timestamp missing or unparsable")
	}
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Errorf("timestamp %v outside expected window", ts)
	}
}

func TestSaveLastRunOverwritesWholesale(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.SaveLastRun(state.LastRun{"first": true}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.SaveLastRun(state.LastRun{"second": true}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	record, err := store.LoadLastRun()
	if err != nil {
		t.Fatalf("LoadLastRun: %v", err)
	}
	if _, ok := record["first"]; ok {
		t.Error("stale key from previous record survived the overwrite")
	}
	if record["second"] != true {
		t.Errorf("second = %v, want true", record["second"])
	}
}

func TestPendingTasksRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	list := state.TaskList{
		{"id": "a", "priority": "high"},
		{"id": "b"},
	}
	if err := store.SavePendingTasks(list); err != nil {
		t.Fatalf("SavePendingTasks: %v", err)
	}

	loaded, err := store.LoadPendingTasks()
	if err != nil {
		t.Fatalf("LoadPendingTasks: %v", err)
	}
	if !reflect.DeepEqual(loaded, list) {
		t.Errorf("loaded = %v, want %v", loaded, list)
	}
}

func TestSavePendingTasksNilBecomesEmptyList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.SavePendingTasks(nil); err != nil {
		t.Fatalf("SavePendingTasks: %v", err)
	}

	loaded, err := store.LoadPendingTasks()
	if err != nil {
		t.Fatalf("LoadPendingTasks: %v", err)
	}
	if loaded == nil || len(loaded) != 0 {
		t.Errorf("loaded = %#v, want empty non-nil list", loaded)
	}
}
