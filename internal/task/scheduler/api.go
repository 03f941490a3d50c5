package scheduler

import (
	"context"
	"errors"
	"sort"
	"time"

	"homeauto/internal/task"
	"homeauto/internal/task/history"
	logx "homeauto/pkg/logx"
)

var (
	ErrNotFound  = errors.New("scheduler: task not found")
	ErrCancelled = errors.New("scheduler: task is cancelled")
	ErrTerminal  = errors.New("scheduler: task already finished")
)

// CreateTask validates and registers a new task. The returned copy carries
// the assigned id, initial status and first execution instant.
func (s *Service) CreateTask(ctx context.Context, def *task.Task) (*task.Task, error) {
	s.mu.Lock()
	t, err := s.repo.Create(def)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	out := t.Clone()
	s.mu.Unlock()

	s.log.Info("task created",
		logx.String("task", out.Name),
		logx.String("id", out.ID),
		logx.String("type", string(out.Type)),
		logx.Time("next", out.NextExecution))
	s.persist(ctx)
	return out, nil
}

// CancelTask cancels a task in any non-terminal state. A queued entry is
// removed before it can run; a running action finishes on its own and its
// outcome is discarded.
func (s *Service) CancelTask(ctx context.Context, id string) error {
	s.mu.Lock()
	t, found := s.repo.Get(id)
	if !found {
		s.mu.Unlock()
		return ErrNotFound
	}
	if !s.cancelLocked(id, "cancelled by caller") {
		st := t.Status
		s.mu.Unlock()
		switch st {
		case task.StatusCancelled:
			return ErrCancelled
		case task.StatusCompleted, task.StatusFailed:
			return ErrTerminal
		}
		return ErrNotFound
	}
	s.mu.Unlock()

	s.log.Info("task cancelled", logx.String("id", id))
	s.persist(ctx)
	return nil
}

// RescheduleTask pushes the task's next execution delay into the future and
// resets it to pending. Queued entries and pending retries are dropped.
func (s *Service) RescheduleTask(ctx context.Context, id string, delay time.Duration) (*task.Task, error) {
	s.mu.Lock()
	if _, found := s.repo.Get(id); !found {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	s.queue.Remove(id)
	if tm, ok := s.retryTimers[id]; ok {
		tm.Stop()
		delete(s.retryTimers, id)
	}
	t, ok := s.repo.Reschedule(id, delay)
	if !ok {
		s.mu.Unlock()
		return nil, ErrCancelled
	}
	out := t.Clone()
	s.mu.Unlock()

	s.log.Info("task rescheduled", logx.String("task", out.Name), logx.Time("next", out.NextExecution))
	s.persist(ctx)
	return out, nil
}

// SetTaskEnabled pauses or resumes a task. Re-enabling recomputes the next
// execution instant.
func (s *Service) SetTaskEnabled(ctx context.Context, id string, enabled bool) (*task.Task, error) {
	s.mu.Lock()
	if _, found := s.repo.Get(id); !found {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if !enabled {
		s.queue.Remove(id)
		if tm, ok := s.retryTimers[id]; ok {
			tm.Stop()
			delete(s.retryTimers, id)
		}
	}
	t, ok := s.repo.SetEnabled(id, enabled)
	if !ok {
		s.mu.Unlock()
		return nil, ErrCancelled
	}
	out := t.Clone()
	s.mu.Unlock()

	s.log.Info("task toggled", logx.String("task", out.Name), logx.Bool("enabled", enabled))
	s.persist(ctx)
	return out, nil
}

// GetTask returns a copy of the task.
func (s *Service) GetTask(id string) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.repo.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

// ListTasks returns copies of every task, ordered by creation time then id
// for stable output.
func (s *Service) ListTasks() []*task.Task {
	s.mu.Lock()
	live := s.repo.List(nil)
	out := make([]*task.Task, 0, len(live))
	for _, t := range live {
		out = append(out, t.Clone())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// History returns a copy of the execution log, oldest first.
func (s *Service) History() []history.Record {
	return s.hist.Records()
}

// Statistics summarizes the task set, queue and execution history.
func (s *Service) Statistics() Stats {
	s.mu.Lock()
	st := Stats{
		Total:       s.repo.Len(),
		ByStatus:    map[task.Status]int{},
		QueueLength: s.queue.Len(),
	}
	for _, t := range s.repo.List(nil) {
		st.ByStatus[t.Status]++
	}
	s.mu.Unlock()

	for _, r := range s.hist.Records() {
		st.History.Records++
		if r.Success {
			st.History.Successes++
		} else {
			st.History.Failures++
		}
	}
	return st
}
