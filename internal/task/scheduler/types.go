package scheduler

import (
	"time"

	"homeauto/internal/task"
	"homeauto/internal/task/history"
	"homeauto/internal/task/policy"
)

// Config controls the scheduler service.
type Config struct {
	Enabled bool

	// ScanInterval is how often pending tasks are checked for dueness.
	ScanInterval time.Duration
	// DrainInterval is how often the queue is drained; at most one entry
	// is executed per drain tick.
	DrainInterval time.Duration
	// OptimizeSpec is the cron spec for the daily schedule optimization.
	OptimizeSpec string

	// DeferDelay is how far a constrained or out-prioritized task is
	// pushed into the future.
	DeferDelay time.Duration

	HistorySize int
	Timezone    string // IANA TZ, e.g. "Europe/Amsterdam"
}

func (c Config) withDefaults() Config {
	if c.ScanInterval <= 0 {
		c.ScanInterval = 30 * time.Second
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = 5 * time.Second
	}
	if c.OptimizeSpec == "" {
		c.OptimizeSpec = "0 3 * * *"
	}
	if c.DeferDelay <= 0 {
		c.DeferDelay = policy.DeferDelay
	}
	if c.HistorySize <= 0 {
		c.HistorySize = history.DefaultCap
	}
	return c
}

// Notifier is the outbound user-notification contract; satisfied by
// notifier.Service. Fire-and-forget.
type Notifier interface {
	NotifyKeyed(key, msg string)
}

// TaskEvent is emitted on the event bus for task lifecycle events.
type TaskEvent struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   task.Status   `json:"status"`
	Attempt  int           `json:"attempt,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Stats is the caller-facing statistics snapshot.
type Stats struct {
	Total       int                 `json:"total"`
	ByStatus    map[task.Status]int `json:"by_status"`
	QueueLength int                 `json:"queue_length"`
	History     HistorySummary      `json:"history"`
}

type HistorySummary struct {
	Records   int `json:"records"`
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}
