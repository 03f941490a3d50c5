package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homeauto/internal/eventbus"
	"homeauto/internal/task"
	"homeauto/internal/task/engine"
	"homeauto/internal/task/history"
	"homeauto/internal/task/recurrence"
	logx "homeauto/pkg/logx"
)

// DrainOne pops at most one queue entry and executes it synchronously.
// Execution blocks the drainer (not the scanner) until the action returns
// or its timeout fires.
func (s *Service) DrainOne(ctx context.Context) {
	s.mu.Lock()
	entry, ok := s.queue.Pop()
	if !ok {
		s.mu.Unlock()
		return
	}
	t, found := s.repo.Get(entry.TaskID)
	if !found || t.Status != task.StatusQueued {
		// Cancelled (or otherwise moved on) between enqueue and drain.
		s.mu.Unlock()
		return
	}
	t.Status = task.StatusRunning
	run := t.Clone() // execute against a copy; the live record stays behind the lock
	s.mu.Unlock()

	s.publish(eventbus.TypeTaskStarted, TaskEvent{ID: run.ID, Name: run.Name, Status: task.StatusRunning, Attempt: entry.Attempt})
	s.log.Debug("task started", logx.String("task", run.Name), logx.Int("attempt", entry.Attempt))

	res := s.exec.Execute(ctx, run)

	s.mu.Lock()
	s.applyOutcomeLocked(entry, res)
	s.mu.Unlock()

	s.persist(ctx)
}

// applyOutcomeLocked updates status, counters and history after one
// execution attempt.
func (s *Service) applyOutcomeLocked(entry engine.Entry, res engine.Result) {
	t, ok := s.repo.Get(entry.TaskID)
	if !ok {
		return
	}
	if t.Status != task.StatusRunning {
		// Cancelled while the action was in flight; discard the outcome.
		s.log.Debug("discarding outcome of cancelled task", logx.String("task", t.Name))
		return
	}
	if res.Err != nil && errors.Is(res.Err, context.Canceled) {
		// Shutdown cancelled the run context mid-attempt. The task did not
		// fail; it goes back to pending, still due, with nothing recorded.
		t.Status = task.StatusPending
		s.log.Debug("attempt interrupted by shutdown", logx.String("task", t.Name))
		return
	}

	now := s.now()
	t.LastExecution = now

	rec := history.Record{
		TaskID:    t.ID,
		TaskName:  t.Name,
		Timestamp: now,
		Success:   res.Success(),
		Duration:  res.Duration,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	s.hist.Append(rec)

	if res.Success() {
		t.Status = task.StatusCompleted
		t.ExecutionCount++
		t.FailureCount = 0
		s.publish(eventbus.TypeTaskCompleted, TaskEvent{ID: t.ID, Name: t.Name, Status: t.Status, Attempt: entry.Attempt, Duration: res.Duration})
		s.log.Info("task completed", logx.String("task", t.Name), logx.Duration("dur", res.Duration), logx.Int("attempt", entry.Attempt))
		s.resetSeriesLocked(t)
		return
	}

	t.FailureCount++
	s.log.Warn("task attempt failed",
		logx.String("task", t.Name),
		logx.Int("attempt", entry.Attempt),
		logx.Bool("timeout", res.TimedOut),
		logx.Err(res.Err))

	if entry.Attempt < t.MaxRetries {
		t.Status = task.StatusRetrying
		s.publish(eventbus.TypeTaskRetrying, TaskEvent{ID: t.ID, Name: t.Name, Status: t.Status, Attempt: entry.Attempt, Error: rec.Error})
		s.scheduleRetryLocked(t, entry.Attempt+1)
		return
	}

	t.Status = task.StatusFailed
	s.publish(eventbus.TypeTaskFailed, TaskEvent{ID: t.ID, Name: t.Name, Status: t.Status, Attempt: entry.Attempt, Error: rec.Error})
	if s.notif != nil {
		s.notif.NotifyKeyed("task-failed:"+t.ID,
			fmt.Sprintf("Task %q failed after %d attempt(s): %s", t.Name, entry.Attempt+1, rec.Error))
	}
	// A failed occurrence does not end a recurring series.
	s.resetSeriesLocked(t)
}

// resetSeriesLocked re-arms recurring and conditional tasks with a fresh
// nextExecution; once tasks stay terminal.
func (s *Service) resetSeriesLocked(t *task.Task) {
	if t.Type == task.TypeOnce {
		t.NextExecution = time.Time{}
		return
	}
	if next, ok := recurrence.Next(t.Type, t.Schedule, s.now()); ok {
		t.NextExecution = next
		t.Status = task.StatusPending
	} else {
		t.NextExecution = time.Time{}
	}
}

// scheduleRetryLocked re-inserts the entry after the task's retry delay.
// The timer re-acquires the lock; cancellation in the window stops it.
func (s *Service) scheduleRetryLocked(t *task.Task, attempt int) {
	id := t.ID
	delay := t.RetryDelay
	if tm, ok := s.retryTimers[id]; ok {
		tm.Stop()
	}
	s.retryTimers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.retryTimers, id)
		rt, ok := s.repo.Get(id)
		if !ok || rt.Status != task.StatusRetrying {
			return
		}
		s.enqueueLocked(rt, attempt)
	})
	s.log.Debug("retry scheduled", logx.String("task", t.Name), logx.Int("attempt", attempt), logx.Duration("delay", delay))
}
