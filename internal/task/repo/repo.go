// Package repo owns the authoritative in-memory set of Task records.
//
// The repository hands out live pointers to the scheduler, which serializes
// all compound mutations under its own lock; everything that leaves the
// scheduler is cloned first. Durability is layered on top: the scheduler
// flushes Snapshot() to the persistence store after each mutating batch.
package repo

import (
	"time"

	"github.com/google/uuid"

	"homeauto/internal/task"
	"homeauto/internal/task/recurrence"
)

type Repository struct {
	tasks map[string]*task.Task

	// now supplies the scheduling clock, usually the scheduler's
	// timezone-aware one. Nil falls back to time.Now.
	now func() time.Time
}

func New(now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	return &Repository{tasks: map[string]*task.Task{}, now: now}
}

// Create validates the definition, assigns an id, computes the first
// NextExecution and stores the task with status pending.
//
// The input is not retained; the returned pointer is the stored record.
func (r *Repository) Create(def *task.Task) (*task.Task, error) {
	t := def.Clone()
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Type == task.TypeRecurring && t.Schedule.Frequency == task.FreqCron {
		if err := recurrence.ValidateCronSpec(t.Schedule.CronSpec); err != nil {
			return nil, &task.ValidationError{Field: "schedule.cron_spec", Msg: err.Error()}
		}
	}

	now := r.now()
	t.ID = uuid.NewString()
	t.Status = task.StatusPending
	t.Created = now
	t.LastExecution = time.Time{}
	t.ExecutionCount = 0
	t.FailureCount = 0
	// Tasks start enabled; use SetEnabled to pause one.
	t.Enabled = true

	if next, ok := recurrence.Next(t.Type, t.Schedule, now); ok {
		t.NextExecution = next
	} else {
		t.NextExecution = time.Time{}
	}

	r.tasks[t.ID] = t
	return t, nil
}

func (r *Repository) Get(id string) (*task.Task, bool) {
	t, ok := r.tasks[id]
	return t, ok
}

func (r *Repository) Len() int { return len(r.tasks) }

// List returns tasks matching the predicate; nil matches everything.
func (r *Repository) List(pred func(*task.Task) bool) []*task.Task {
	out := make([]*task.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if pred == nil || pred(t) {
			out = append(out, t)
		}
	}
	return out
}

// ListByStatus implements policy.TaskView.
func (r *Repository) ListByStatus(statuses ...task.Status) []*task.Task {
	return r.List(func(t *task.Task) bool {
		for _, s := range statuses {
			if t.Status == s {
				return true
			}
		}
		return false
	})
}

// CountByStatus implements policy.TaskView.
func (r *Repository) CountByStatus(st task.Status) int {
	n := 0
	for _, t := range r.tasks {
		if t.Status == st {
			n++
		}
	}
	return n
}

// Cancel marks the task cancelled and clears its next execution. Cancelled
// tasks remain in the repository for audit; physical deletion is not
// required. Returns false for unknown ids or already-terminal tasks.
func (r *Repository) Cancel(id string) (*task.Task, bool) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, false
	}
	if !task.CanTransition(t.Status, task.StatusCancelled) {
		return nil, false
	}
	t.Status = task.StatusCancelled
	t.NextExecution = time.Time{}
	return t, true
}

// Reschedule pushes the task delay into the future and resets it to pending.
func (r *Repository) Reschedule(id string, delay time.Duration) (*task.Task, bool) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, false
	}
	if t.Status == task.StatusCancelled {
		return nil, false
	}
	t.NextExecution = r.now().Add(delay)
	t.Status = task.StatusPending
	return t, true
}

// SetEnabled toggles scanning for the task. Re-enabling recomputes
// NextExecution, since a disabled task's instant may be long past.
func (r *Repository) SetEnabled(id string, enabled bool) (*task.Task, bool) {
	t, ok := r.tasks[id]
	if !ok || t.Status == task.StatusCancelled {
		return nil, false
	}
	if enabled && !t.Enabled {
		if next, ok := recurrence.Next(t.Type, t.Schedule, r.now()); ok {
			t.NextExecution = next
		} else {
			t.NextExecution = time.Time{}
		}
		t.Status = task.StatusPending
	}
	t.Enabled = enabled
	return t, true
}

// Snapshot returns serializable copies of every task for persistence.
func (r *Repository) Snapshot() []task.Task {
	out := make([]task.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, *t.Clone())
	}
	return out
}

// Restore replaces the task set from a persisted snapshot. In-flight
// statuses are downgraded: a task that was queued/running/retrying when the
// snapshot was taken restarts as pending (execution is not exactly-once
// across restarts).
func (r *Repository) Restore(tasks []task.Task, now time.Time) {
	r.tasks = make(map[string]*task.Task, len(tasks))
	for i := range tasks {
		t := tasks[i].Clone()
		switch t.Status {
		case task.StatusQueued, task.StatusRunning, task.StatusRetrying:
			t.Status = task.StatusPending
			if t.NextExecution.IsZero() {
				if next, ok := recurrence.Next(t.Type, t.Schedule, now); ok {
					t.NextExecution = next
				}
			}
		}
		r.tasks[t.ID] = t
	}
}
