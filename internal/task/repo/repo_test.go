package repo

import (
	"errors"
	"testing"
	"time"

	"homeauto/internal/task"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
}

func newTestRepo() *Repository {
	return New(fixedNow)
}

func dailyDef() *task.Task {
	return &task.Task{
		Name:     "morning lights",
		Type:     task.TypeRecurring,
		Schedule: task.Schedule{Frequency: task.FreqDaily, Hour: 7, Minute: 30},
		Action:   task.Action{Kind: task.ActionDeviceCapability, DeviceID: "light-1", Capability: "onoff", Value: true},
	}
}

func TestCreateAssignsRuntimeFields(t *testing.T) {
	t.Parallel()
	r := newTestRepo()

	got, err := r.Create(dailyDef())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected an id")
	}
	if got.Status != task.StatusPending {
		t.Fatalf("Status = %s, want pending", got.Status)
	}
	if !got.Enabled {
		t.Fatal("tasks should start enabled")
	}
	if got.Priority != task.DefaultPriority {
		t.Fatalf("Priority = %d, want default %d", got.Priority, task.DefaultPriority)
	}
	want := time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)
	if !got.NextExecution.Equal(want) {
		t.Fatalf("NextExecution = %v, want %v", got.NextExecution, want)
	}
}

func TestCreateDoesNotRetainInput(t *testing.T) {
	t.Parallel()
	r := newTestRepo()
	def := dailyDef()
	got, err := r.Create(def)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	def.Name = "mutated"
	if stored, _ := r.Get(got.ID); stored.Name != "morning lights" {
		t.Fatal("repository retained the caller's task")
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	t.Parallel()
	r := newTestRepo()
	def := dailyDef()
	def.Priority = 42

	_, err := r.Create(def)
	var verr *task.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatal("invalid task must not be stored")
	}
}

func TestCreateValidatesCronSpec(t *testing.T) {
	t.Parallel()
	r := newTestRepo()
	def := dailyDef()
	def.Schedule = task.Schedule{Frequency: task.FreqCron, CronSpec: "bad spec"}

	if _, err := r.Create(def); err == nil {
		t.Fatal("expected error for unparseable cron spec")
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()
	r := newTestRepo()
	created, err := r.Create(dailyDef())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, ok := r.Cancel(created.ID)
	if !ok {
		t.Fatal("expected cancel to succeed")
	}
	if got.Status != task.StatusCancelled {
		t.Fatalf("Status = %s, want cancelled", got.Status)
	}
	if !got.NextExecution.IsZero() {
		t.Fatal("cancel should clear NextExecution")
	}

	// Cancelled is terminal.
	if _, ok := r.Cancel(created.ID); ok {
		t.Fatal("expected second cancel to fail")
	}
	if _, ok := r.Reschedule(created.ID, time.Minute); ok {
		t.Fatal("expected reschedule of cancelled task to fail")
	}
	if _, ok := r.Cancel("no-such-id"); ok {
		t.Fatal("expected cancel of unknown id to fail")
	}
}

func TestReschedule(t *testing.T) {
	t.Parallel()
	r := newTestRepo()
	created, err := r.Create(dailyDef())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	created.Status = task.StatusFailed

	got, ok := r.Reschedule(created.ID, 10*time.Minute)
	if !ok {
		t.Fatal("expected reschedule to succeed")
	}
	if got.Status != task.StatusPending {
		t.Fatalf("Status = %s, want pending", got.Status)
	}
	if want := fixedNow().Add(10 * time.Minute); !got.NextExecution.Equal(want) {
		t.Fatalf("NextExecution = %v, want %v", got.NextExecution, want)
	}
}

func TestSetEnabled(t *testing.T) {
	t.Parallel()
	r := newTestRepo()
	created, err := r.Create(dailyDef())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	got, ok := r.SetEnabled(created.ID, false)
	if !ok || got.Enabled {
		t.Fatal("expected task to be disabled")
	}

	// Re-enabling recomputes the next occurrence from now.
	got, ok = r.SetEnabled(created.ID, true)
	if !ok || !got.Enabled {
		t.Fatal("expected task to be enabled")
	}
	if want := time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC); !got.NextExecution.Equal(want) {
		t.Fatalf("NextExecution = %v, want %v", got.NextExecution, want)
	}
}

func TestRestoreDowngradesInFlight(t *testing.T) {
	t.Parallel()
	r := newTestRepo()
	now := fixedNow()

	snap := []task.Task{
		{ID: "a", Name: "a", Type: task.TypeRecurring, Schedule: task.Schedule{Frequency: task.FreqDaily, Hour: 7}, Status: task.StatusRunning},
		{ID: "b", Name: "b", Type: task.TypeRecurring, Schedule: task.Schedule{Frequency: task.FreqDaily, Hour: 8}, Status: task.StatusQueued},
		{ID: "c", Name: "c", Type: task.TypeRecurring, Schedule: task.Schedule{Frequency: task.FreqDaily, Hour: 9}, Status: task.StatusCompleted},
		{ID: "d", Name: "d", Type: task.TypeOnce, Schedule: task.Schedule{Time: now.Add(-time.Hour)}, Status: task.StatusCancelled},
	}
	r.Restore(snap, now)

	for _, id := range []string{"a", "b"} {
		got, _ := r.Get(id)
		if got.Status != task.StatusPending {
			t.Fatalf("%s: Status = %s, want pending", id, got.Status)
		}
		if got.NextExecution.IsZero() {
			t.Fatalf("%s: expected recomputed NextExecution", id)
		}
	}
	if got, _ := r.Get("c"); got.Status != task.StatusCompleted {
		t.Fatalf("c: Status = %s, want completed", got.Status)
	}
	if got, _ := r.Get("d"); got.Status != task.StatusCancelled {
		t.Fatalf("d: Status = %s, want cancelled", got.Status)
	}
}

func TestSnapshotCopies(t *testing.T) {
	t.Parallel()
	r := newTestRepo()
	created, err := r.Create(dailyDef())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	snap := r.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("len = %d, want 1", len(snap))
	}
	snap[0].Name = "mutated"
	if stored, _ := r.Get(created.ID); stored.Name != "morning lights" {
		t.Fatal("snapshot aliased the live record")
	}
}

func TestListByStatusAndCount(t *testing.T) {
	t.Parallel()
	r := newTestRepo()
	a, err := r.Create(dailyDef())
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := r.Create(dailyDef()); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	a.Status = task.StatusQueued

	if got := r.CountByStatus(task.StatusPending); got != 1 {
		t.Fatalf("CountByStatus(pending) = %d, want 1", got)
	}
	if got := r.ListByStatus(task.StatusQueued, task.StatusPending); len(got) != 2 {
		t.Fatalf("ListByStatus = %d entries, want 2", len(got))
	}
}
