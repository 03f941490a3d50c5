package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"homeauto/internal/task"
	"homeauto/internal/task/history"
	logx "homeauto/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " None "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("driver %q: unexpected error %v", driver, err)
		}
		if st != nil {
			t.Fatalf("driver %q: expected nil store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenFileRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error without a path")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "state.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	// A fresh store reads back empty, not an error.
	tasks, err := st.LoadTasks(ctx)
	if err != nil {
		t.Fatalf("LoadTasks error: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty store, got %d tasks", len(tasks))
	}

	now := time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)
	in := []task.Task{
		{
			ID:            "t1",
			Name:          "morning lights",
			Type:          task.TypeRecurring,
			Status:        task.StatusPending,
			Enabled:       true,
			Priority:      5,
			Schedule:      task.Schedule{Frequency: task.FreqDaily, Hour: 7, Minute: 30},
			Action:        task.Action{Kind: task.ActionDeviceCapability, DeviceID: "light-1", Capability: "onoff", Value: true},
			NextExecution: now,
		},
	}
	if err := st.SaveTasks(ctx, in); err != nil {
		t.Fatalf("SaveTasks error: %v", err)
	}
	got, err := st.LoadTasks(ctx)
	if err != nil {
		t.Fatalf("LoadTasks error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "t1" || got[0].Schedule.Hour != 7 {
		t.Fatalf("unexpected tasks: %+v", got)
	}
	if !got[0].NextExecution.Equal(now) {
		t.Fatalf("NextExecution = %v, want %v", got[0].NextExecution, now)
	}

	recs := []history.Record{
		{TaskID: "t1", TaskName: "morning lights", Timestamp: now, Success: true, Duration: 120 * time.Millisecond},
		{TaskID: "t1", TaskName: "morning lights", Timestamp: now.Add(time.Hour), Success: false, Error: "device offline"},
	}
	if err := st.SaveHistory(ctx, recs); err != nil {
		t.Fatalf("SaveHistory error: %v", err)
	}
	gotRecs, err := st.LoadHistory(ctx)
	if err != nil {
		t.Fatalf("LoadHistory error: %v", err)
	}
	if len(gotRecs) != 2 || gotRecs[1].Error != "device offline" {
		t.Fatalf("unexpected history: %+v", gotRecs)
	}

	// Saves replace the previous snapshot wholesale.
	if err := st.SaveTasks(ctx, nil); err != nil {
		t.Fatalf("SaveTasks error: %v", err)
	}
	got, err = st.LoadTasks(ctx)
	if err != nil {
		t.Fatalf("LoadTasks error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected wholesale replace, got %d tasks", len(got))
	}
}

func TestFileStoreDerivesSnapshotPaths(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "state.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.SaveTasks(ctx, nil); err != nil {
		t.Fatalf("SaveTasks error: %v", err)
	}
	if err := st.SaveHistory(ctx, nil); err != nil {
		t.Fatalf("SaveHistory error: %v", err)
	}
	for _, name := range []string{"state.tasks.json", "state.history.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
}
