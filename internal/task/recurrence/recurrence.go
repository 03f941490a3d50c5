// Package recurrence computes the next execution instant for a task
// schedule. It is purely functional: no clocks, no state.
package recurrence

import (
	"time"

	"github.com/robfig/cron/v3"

	"homeauto/internal/task"
)

// conditionalRecheck is how often conditional tasks are re-offered to the
// scanner; they are continuously re-checked rather than scheduled.
const conditionalRecheck = time.Minute

// parser accepts standard 5-field cron specs plus descriptors (@daily, @every ...).
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCronSpec reports whether spec parses as a cron schedule.
func ValidateCronSpec(spec string) error {
	_, err := parser.Parse(spec)
	return err
}

// Next returns the next execution instant strictly after from, or false if
// the schedule has no further occurrence (a spent once task, or an
// unparseable cron spec).
//
// The strictly-after contract holds for every branch; returning from itself
// would busy-loop the scanner on the same instant.
func Next(tp task.Type, s task.Schedule, from time.Time) (time.Time, bool) {
	switch tp {
	case task.TypeOnce:
		if s.Time.After(from) {
			return s.Time, true
		}
		return time.Time{}, false

	case task.TypeConditional:
		return from.Add(conditionalRecheck), true

	case task.TypeRecurring:
		return nextRecurring(s, from)
	}
	return time.Time{}, false
}

func nextRecurring(s task.Schedule, from time.Time) (time.Time, bool) {
	loc := from.Location()
	switch s.Frequency {
	case task.FreqHourly:
		next := time.Date(from.Year(), from.Month(), from.Day(), from.Hour(), s.Minute, 0, 0, loc)
		if !next.After(from) {
			next = next.Add(time.Hour)
		}
		return next, true

	case task.FreqDaily:
		next := time.Date(from.Year(), from.Month(), from.Day(), s.Hour, s.Minute, 0, 0, loc)
		if !next.After(from) {
			next = next.AddDate(0, 0, 1)
		}
		return next, true

	case task.FreqWeekly:
		days := (s.DayOfWeek - int(from.Weekday()) + 7) % 7
		next := time.Date(from.Year(), from.Month(), from.Day(), s.Hour, s.Minute, 0, 0, loc)
		next = next.AddDate(0, 0, days)
		if !next.After(from) {
			next = next.AddDate(0, 0, 7)
		}
		return next, true

	case task.FreqMonthly:
		// Day is clamped to the month's last day, so a day-31 schedule fires
		// on Feb 28 instead of normalizing into March.
		next := monthlyOccurrence(from.Year(), from.Month(), s, loc)
		if !next.After(from) {
			next = monthlyOccurrence(from.Year(), from.Month()+1, s, loc)
		}
		return next, true

	case task.FreqInterval:
		if s.Interval <= 0 {
			return time.Time{}, false
		}
		return from.Add(s.Interval), true

	case task.FreqCron:
		sched, err := parser.Parse(s.CronSpec)
		if err != nil {
			return time.Time{}, false
		}
		// cron's Next is already strictly after its argument.
		return sched.Next(from), true
	}
	return time.Time{}, false
}

func monthlyOccurrence(year int, month time.Month, s task.Schedule, loc *time.Location) time.Time {
	day := s.Day
	if last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day(); day > last {
		day = last
	}
	return time.Date(year, month, day, s.Hour, s.Minute, 0, 0, loc)
}
