package optimizer

import (
	"testing"
	"time"

	"homeauto/internal/task"
	"homeauto/internal/task/history"
)

func failingDaily(id string, hour, failures int) *task.Task {
	return &task.Task{
		ID:           id,
		Name:         id,
		Type:         task.TypeRecurring,
		Schedule:     task.Schedule{Frequency: task.FreqDaily, Hour: hour},
		FailureCount: failures,
	}
}

func appendFailures(l *history.Log, taskID string, hour, n int) {
	for i := 0; i < n; i++ {
		l.Append(history.Record{
			TaskID:    taskID,
			Timestamp: time.Date(2026, 3, 10+i, hour, 5, 0, 0, time.UTC),
			Success:   false,
		})
	}
}

func TestRunShiftsChronicFailureHour(t *testing.T) {
	t.Parallel()
	hist := history.New(100)
	tk := failingDaily("t1", 7, 4)
	appendFailures(hist, "t1", 7, 4)
	now := time.Date(2026, 3, 20, 3, 0, 0, 0, time.UTC)

	adjusted := Run([]*task.Task{tk}, hist, now)
	if len(adjusted) != 1 {
		t.Fatalf("adjustments = %d, want 1", len(adjusted))
	}
	if adjusted[0].FromHour != 7 || adjusted[0].ToHour != 9 {
		t.Fatalf("shift %d -> %d, want 7 -> 9", adjusted[0].FromHour, adjusted[0].ToHour)
	}
	if tk.Schedule.Hour != 9 {
		t.Fatalf("Schedule.Hour = %d, want 9", tk.Schedule.Hour)
	}
	if tk.NextExecution.IsZero() || tk.NextExecution.Hour() != 9 {
		t.Fatalf("NextExecution = %v, want an 09:00 slot", tk.NextExecution)
	}
}

func TestRunShiftWrapsMidnight(t *testing.T) {
	t.Parallel()
	hist := history.New(100)
	tk := failingDaily("t1", 23, 4)
	appendFailures(hist, "t1", 23, 4)
	now := time.Date(2026, 3, 20, 3, 0, 0, 0, time.UTC)

	adjusted := Run([]*task.Task{tk}, hist, now)
	if len(adjusted) != 1 || tk.Schedule.Hour != 1 {
		t.Fatalf("Schedule.Hour = %d, want 1", tk.Schedule.Hour)
	}
}

func TestRunSkips(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 20, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		setup func(*history.Log) *task.Task
	}{
		{
			name: "below failure threshold",
			setup: func(l *history.Log) *task.Task {
				tk := failingDaily("t1", 7, 3) // threshold is strictly-greater
				appendFailures(l, "t1", 7, 3)
				return tk
			},
		},
		{
			name: "failures at a different hour",
			setup: func(l *history.Log) *task.Task {
				tk := failingDaily("t1", 7, 5)
				appendFailures(l, "t1", 13, 5)
				return tk
			},
		},
		{
			name: "interval schedules have no hour",
			setup: func(l *history.Log) *task.Task {
				tk := failingDaily("t1", 0, 5)
				tk.Schedule = task.Schedule{Frequency: task.FreqInterval, Interval: time.Hour}
				appendFailures(l, "t1", 0, 5)
				return tk
			},
		},
		{
			name: "once tasks are not optimized",
			setup: func(l *history.Log) *task.Task {
				tk := failingDaily("t1", 7, 5)
				tk.Type = task.TypeOnce
				appendFailures(l, "t1", 7, 5)
				return tk
			},
		},
		{
			name: "no history records",
			setup: func(l *history.Log) *task.Task {
				return failingDaily("t1", 7, 5)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			hist := history.New(100)
			tk := tt.setup(hist)
			before := tk.Schedule.Hour
			if adjusted := Run([]*task.Task{tk}, hist, now); len(adjusted) != 0 {
				t.Fatalf("expected no adjustments, got %+v", adjusted)
			}
			if tk.Schedule.Hour != before {
				t.Fatalf("Schedule.Hour changed to %d", tk.Schedule.Hour)
			}
		})
	}
}

func TestRunSamplesRecentFailuresOnly(t *testing.T) {
	t.Parallel()
	hist := history.New(100)
	tk := failingDaily("t1", 7, 5)
	// Old failures at hour 7, but the ten most recent are at hour 13:
	// the mined mode must come from the recent sample.
	appendFailures(hist, "t1", 7, 5)
	appendFailures(hist, "t1", 13, 10)
	now := time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)

	if adjusted := Run([]*task.Task{tk}, hist, now); len(adjusted) != 0 {
		t.Fatalf("expected no adjustment when recent failures cluster elsewhere, got %+v", adjusted)
	}
}
