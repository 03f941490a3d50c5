package scheduler

import (
	"context"
	"sort"

	"homeauto/internal/eventbus"
	"homeauto/internal/task"
	"homeauto/internal/task/engine"
	"homeauto/internal/task/policy"
	"homeauto/internal/task/recurrence"
	logx "homeauto/pkg/logx"
)

// Scan walks every enabled pending task whose nextExecution has arrived and
// offers it to the condition/constraint/dependency/conflict pipeline. Tasks
// that clear the pipeline enter the execution queue.
func (s *Service) Scan(ctx context.Context) {
	s.mu.Lock()
	now := s.now()

	due := s.repo.List(func(t *task.Task) bool {
		return t.Enabled &&
			t.Status == task.StatusPending &&
			!t.NextExecution.IsZero() &&
			!t.NextExecution.After(now)
	})
	// Highest priority first into the pipeline. The queue itself stays
	// FIFO; priority only orders the offering.
	sort.SliceStable(due, func(i, j int) bool { return due[i].Priority > due[j].Priority })

	changed := false
	for _, t := range due {
		if s.offerLocked(ctx, t) {
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.persist(ctx)
	}
}

// offerLocked runs the gating pipeline for one due task. Returns true when
// the task (or a conflicting one) was mutated.
func (s *Service) offerLocked(ctx context.Context, t *task.Task) bool {
	now := s.now()

	// Conditions. An unmet condition means the task is simply not due yet:
	// scheduled tasks stay pending and are re-checked next scan; conditional
	// tasks get their next re-check instant pushed out.
	if !s.conds.Satisfied(ctx, t, now) {
		if t.Type == task.TypeConditional {
			if next, ok := recurrence.Next(t.Type, t.Schedule, now); ok {
				t.NextExecution = next
				return true
			}
		}
		return false
	}

	// Constraints: reject means defer, never error.
	if ok, reason := s.cons.Check(ctx, s.repo, t, now); !ok {
		s.deferLocked(t, reason)
		return true
	}

	// Dependencies: an unmet dependency leaves the task un-queued; it is
	// re-evaluated on the next scan without rescheduling.
	if ok, reason := policy.DependenciesSatisfied(s.repo, t, now); !ok {
		s.log.Debug("task waiting on dependency", logx.String("task", t.Name), logx.String("reason", reason))
		return false
	}

	// Conflicts: strictly higher priority evicts; equal or lower defers.
	conflicts := policy.FindConflicts(s.repo, t)
	for _, other := range conflicts {
		if t.Priority <= other.Priority {
			s.deferLocked(t, "conflict with "+other.Name)
			return true
		}
	}
	for _, other := range conflicts {
		s.log.Info("cancelling conflicting task",
			logx.String("task", other.Name),
			logx.Int("priority", other.Priority),
			logx.String("winner", t.Name),
			logx.Int("winner_priority", t.Priority))
		s.cancelLocked(other.ID, "out-prioritized by "+t.Name)
	}

	s.enqueueLocked(t, 0)
	return true
}

// enqueueLocked moves the task into the FIFO queue.
func (s *Service) enqueueLocked(t *task.Task, attempt int) {
	t.Status = task.StatusQueued
	s.queue.Push(engine.Entry{TaskID: t.ID, EnqueuedAt: s.now(), Attempt: attempt})
	s.publish(eventbus.TypeTaskQueued, TaskEvent{ID: t.ID, Name: t.Name, Status: t.Status, Attempt: attempt})
	s.log.Debug("task queued", logx.String("task", t.Name), logx.Int("attempt", attempt))
}

// deferLocked pushes the task DeferDelay into the future with status reset
// to pending.
func (s *Service) deferLocked(t *task.Task, reason string) {
	t.NextExecution = s.now().Add(s.cfg.DeferDelay)
	t.Status = task.StatusPending
	s.publish(eventbus.TypeTaskDeferred, TaskEvent{ID: t.ID, Name: t.Name, Status: t.Status, Reason: reason})
	s.log.Debug("task deferred", logx.String("task", t.Name), logx.String("reason", reason), logx.Duration("delay", s.cfg.DeferDelay))
}

// cancelLocked cancels a task, removing any queued entry and pending retry
// timer. An action already in flight is not forcibly aborted; its outcome
// is discarded when it reports back.
func (s *Service) cancelLocked(id, reason string) bool {
	t, ok := s.repo.Cancel(id)
	if !ok {
		return false
	}
	s.queue.Remove(id)
	if tm, ok := s.retryTimers[id]; ok {
		tm.Stop()
		delete(s.retryTimers, id)
	}
	s.publish(eventbus.TypeTaskCancelled, TaskEvent{ID: t.ID, Name: t.Name, Status: t.Status, Reason: reason})
	return true
}
