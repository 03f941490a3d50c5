package task

import (
	"time"
)

// Frequency selects the recurrence rule of a recurring schedule.
type Frequency string

const (
	FreqHourly   Frequency = "hourly"
	FreqDaily    Frequency = "daily"
	FreqWeekly   Frequency = "weekly"
	FreqMonthly  Frequency = "monthly"
	FreqInterval Frequency = "interval"
	// FreqCron schedules with a robfig/cron spec string.
	FreqCron Frequency = "cron"
)

// Schedule is the variant record matched by Task.Type.
//
//   - once: Time is the single execution instant.
//   - recurring: Frequency plus the calendar fields it needs
//     (hourly: Minute; daily: Hour+Minute; weekly: DayOfWeek+Hour+Minute;
//     monthly: Day+Hour+Minute; interval: Interval; cron: CronSpec).
//   - conditional: no fields; the task is re-checked every minute.
type Schedule struct {
	// Time is the execution instant for once-type tasks.
	Time time.Time `json:"time,omitzero"`

	Frequency Frequency `json:"frequency,omitempty"`

	Minute int `json:"minute,omitempty"`
	Hour   int `json:"hour,omitempty"`
	// DayOfWeek follows time.Weekday: 0 = Sunday.
	DayOfWeek int `json:"day_of_week,omitempty"`
	// Day is the day of month (1..31); months without it roll over.
	Day int `json:"day,omitempty"`

	Interval time.Duration `json:"interval,omitempty"`

	CronSpec string `json:"cron_spec,omitempty"`
}
