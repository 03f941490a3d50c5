package task

import (
	"time"
)

// Type describes how a task decides when it is due.
type Type string

const (
	TypeOnce        Type = "once"
	TypeRecurring   Type = "recurring"
	TypeConditional Type = "conditional"
)

// Task is a unit of schedulable automation work.
//
// A Task is mutated in place by the scanner (status, next execution), the
// executor (status, counters, last execution) and the optimizer (schedule
// hour). All mutation happens under the scheduler's lock; callers outside
// the scheduler only ever see copies (Clone).
type Task struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type Type   `json:"type"`

	Schedule Schedule `json:"schedule"`
	Action   Action   `json:"action"`

	// Priority 1..10, 10 highest. Used only for conflict arbitration,
	// not for queue ordering.
	Priority int `json:"priority"`

	Constraints  *Constraints `json:"constraints,omitempty"`
	Conditions   []Condition  `json:"conditions,omitempty"`
	Dependencies []string     `json:"dependencies,omitempty"`

	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
	Timeout    time.Duration `json:"timeout"`

	Enabled bool   `json:"enabled"`
	Status  Status `json:"status"`

	Created       time.Time `json:"created"`
	LastExecution time.Time `json:"last_execution,omitzero"`
	// NextExecution zero means the task is never scanned again until
	// explicitly recomputed (e.g. on re-enable or reschedule).
	NextExecution  time.Time `json:"next_execution,omitzero"`
	ExecutionCount int       `json:"execution_count"`
	FailureCount   int       `json:"failure_count"` // consecutive failures since last success

	Metadata Metadata `json:"metadata,omitzero"`
}

// Metadata carries free-form task annotations.
//
// ConflictingZones declares irrigation/climate zones this task claims in
// addition to its action target; the conflict resolver matches them against
// other tasks' action zones.
type Metadata struct {
	ConflictingZones []string          `json:"conflicting_zones,omitempty"`
	Labels           map[string]string `json:"labels,omitempty"`
}

// Constraints are runtime policies limiting when and how tasks may execute.
type Constraints struct {
	// ExcludeHours lists blackout hours-of-day (0..23).
	ExcludeHours []int `json:"exclude_hours,omitempty"`
	// MaxConcurrent caps the number of tasks in status "running".
	// 0 disables the ceiling.
	MaxConcurrent int `json:"max_concurrent,omitempty"`
	// MaxEnergyPrice defers execution while the current energy price
	// exceeds it. Nil disables the ceiling.
	MaxEnergyPrice *float64 `json:"max_energy_price,omitempty"`
	// DependencyMaxAge requires dependency completions to be at most this
	// old. 0 disables the freshness window.
	DependencyMaxAge time.Duration `json:"dependency_max_age,omitempty"`
}

// Clone returns a deep copy safe to hand outside the scheduler lock.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Constraints != nil {
		c := *t.Constraints
		if t.Constraints.ExcludeHours != nil {
			c.ExcludeHours = append([]int(nil), t.Constraints.ExcludeHours...)
		}
		if t.Constraints.MaxEnergyPrice != nil {
			p := *t.Constraints.MaxEnergyPrice
			c.MaxEnergyPrice = &p
		}
		cp.Constraints = &c
	}
	if t.Conditions != nil {
		cp.Conditions = append([]Condition(nil), t.Conditions...)
	}
	if t.Dependencies != nil {
		cp.Dependencies = append([]string(nil), t.Dependencies...)
	}
	if t.Metadata.ConflictingZones != nil {
		cp.Metadata.ConflictingZones = append([]string(nil), t.Metadata.ConflictingZones...)
	}
	if t.Metadata.Labels != nil {
		m := make(map[string]string, len(t.Metadata.Labels))
		for k, v := range t.Metadata.Labels {
			m[k] = v
		}
		cp.Metadata.Labels = m
	}
	return &cp
}

// Terminal reports whether the task will not run again without outside
// intervention.
func (t *Task) Terminal() bool {
	if t.Status == StatusCancelled {
		return true
	}
	if t.Type == TypeOnce && (t.Status == StatusCompleted || t.Status == StatusFailed) {
		return true
	}
	return false
}
