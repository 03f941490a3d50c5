// Package optimizer nudges chronically failing recurring schedules away
// from their worst hour of day. It is a heuristic: it only ever shifts a
// schedule, never disables it.
package optimizer

import (
	"time"

	"homeauto/internal/task"
	"homeauto/internal/task/history"
	"homeauto/internal/task/recurrence"
)

const (
	// failureThreshold is the consecutive-failure count above which a task
	// is considered for optimization.
	failureThreshold = 3
	// sampleSize caps how many recent failure records are mined per task.
	sampleSize = 10
	// hourShift is applied (mod 24) when the scheduled hour matches the
	// most frequent failure hour.
	hourShift = 2
)

// Adjustment describes one applied schedule shift.
type Adjustment struct {
	TaskID   string
	TaskName string
	FromHour int
	ToHour   int
}

// Run scans the given tasks and shifts the schedule hour of recurring tasks
// that keep failing at their scheduled hour. Tasks are mutated in place;
// the caller holds the scheduler lock.
func Run(tasks []*task.Task, hist *history.Log, now time.Time) []Adjustment {
	var out []Adjustment
	for _, t := range tasks {
		if t.Type != task.TypeRecurring || t.FailureCount <= failureThreshold {
			continue
		}
		if !hasHourField(t.Schedule.Frequency) {
			continue
		}

		failures := hist.LastFailures(t.ID, sampleSize)
		if len(failures) == 0 {
			continue
		}
		mode, ok := modeHour(failures)
		if !ok || mode != t.Schedule.Hour {
			continue
		}

		from := t.Schedule.Hour
		t.Schedule.Hour = (t.Schedule.Hour + hourShift) % 24
		if next, ok := recurrence.Next(t.Type, t.Schedule, now); ok {
			t.NextExecution = next
		}
		out = append(out, Adjustment{TaskID: t.ID, TaskName: t.Name, FromHour: from, ToHour: t.Schedule.Hour})
	}
	return out
}

func hasHourField(f task.Frequency) bool {
	switch f {
	case task.FreqDaily, task.FreqWeekly, task.FreqMonthly:
		return true
	}
	return false
}

// modeHour returns the most frequent hour-of-day among the records. Ties
// resolve to the hour seen most recently (records arrive newest first).
func modeHour(records []history.Record) (int, bool) {
	if len(records) == 0 {
		return 0, false
	}
	counts := map[int]int{}
	order := make([]int, 0, len(records))
	for _, r := range records {
		h := r.Timestamp.Hour()
		if counts[h] == 0 {
			order = append(order, h)
		}
		counts[h]++
	}
	best, bestN := 0, -1
	for _, h := range order {
		if counts[h] > bestN {
			best, bestN = h, counts[h]
		}
	}
	return best, true
}
