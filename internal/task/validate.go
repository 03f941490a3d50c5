package task

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied by Normalize when a field is unset.
const (
	DefaultPriority   = 5
	DefaultTimeout    = 30 * time.Second
	DefaultRetryDelay = time.Minute
)

// ValidationError reports malformed task data at creation time. Tasks that
// fail validation are rejected synchronously and never stored.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid task: " + e.Msg
	}
	return fmt.Sprintf("invalid task: %s: %s", e.Field, e.Msg)
}

func invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// Normalize fills defaults in place. It is called before Validate so a
// sparse task definition (name + type + schedule + action) is enough.
func (t *Task) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	if t.Priority == 0 {
		t.Priority = DefaultPriority
	}
	if t.Timeout <= 0 {
		t.Timeout = DefaultTimeout
	}
	if t.RetryDelay <= 0 {
		t.RetryDelay = DefaultRetryDelay
	}
	if t.MaxRetries < 0 {
		t.MaxRetries = 0
	}
}

// Validate checks task data after Normalize. It does not touch the runtime
// fields (status, counters); those are owned by the repository.
func (t *Task) Validate() error {
	if t.Name == "" {
		return invalid("name", "required")
	}
	switch t.Type {
	case TypeOnce, TypeRecurring, TypeConditional:
	case "":
		return invalid("type", "required")
	default:
		return invalid("type", fmt.Sprintf("unknown type %q", t.Type))
	}
	if t.Priority < 1 || t.Priority > 10 {
		return invalid("priority", "must be in 1..10")
	}
	if err := t.validateSchedule(); err != nil {
		return err
	}
	if err := t.validateAction(); err != nil {
		return err
	}
	for i, c := range t.Conditions {
		if err := validateCondition(i, c); err != nil {
			return err
		}
	}
	if t.Constraints != nil {
		for _, h := range t.Constraints.ExcludeHours {
			if h < 0 || h > 23 {
				return invalid("constraints.exclude_hours", "hours must be in 0..23")
			}
		}
		if t.Constraints.MaxConcurrent < 0 {
			return invalid("constraints.max_concurrent", "must be >= 0")
		}
		if t.Constraints.DependencyMaxAge < 0 {
			return invalid("constraints.dependency_max_age", "must be >= 0")
		}
	}
	return nil
}

func (t *Task) validateSchedule() error {
	s := t.Schedule
	switch t.Type {
	case TypeOnce:
		if s.Time.IsZero() {
			return invalid("schedule.time", "required for once tasks")
		}
	case TypeConditional:
		// Conditional tasks have no schedule; they are re-checked
		// continuously once due.
	case TypeRecurring:
		switch s.Frequency {
		case FreqHourly:
			return checkMinute(s.Minute)
		case FreqDaily:
			if err := checkHour(s.Hour); err != nil {
				return err
			}
			return checkMinute(s.Minute)
		case FreqWeekly:
			if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
				return invalid("schedule.day_of_week", "must be in 0..6 (0 = Sunday)")
			}
			if err := checkHour(s.Hour); err != nil {
				return err
			}
			return checkMinute(s.Minute)
		case FreqMonthly:
			if s.Day < 1 || s.Day > 31 {
				return invalid("schedule.day", "must be in 1..31")
			}
			if err := checkHour(s.Hour); err != nil {
				return err
			}
			return checkMinute(s.Minute)
		case FreqInterval:
			if s.Interval <= 0 {
				return invalid("schedule.interval", "must be > 0")
			}
		case FreqCron:
			if strings.TrimSpace(s.CronSpec) == "" {
				return invalid("schedule.cron_spec", "required for cron frequency")
			}
		case "":
			return invalid("schedule.frequency", "required for recurring tasks")
		default:
			return invalid("schedule.frequency", fmt.Sprintf("unknown frequency %q", s.Frequency))
		}
	}
	return nil
}

func checkMinute(m int) error {
	if m < 0 || m > 59 {
		return invalid("schedule.minute", "must be in 0..59")
	}
	return nil
}

func checkHour(h int) error {
	if h < 0 || h > 23 {
		return invalid("schedule.hour", "must be in 0..23")
	}
	return nil
}

func (t *Task) validateAction() error {
	a := t.Action
	if !a.Kind.Valid() {
		if a.Kind == "" {
			return invalid("action.kind", "required")
		}
		return invalid("action.kind", fmt.Sprintf("unknown kind %q", a.Kind))
	}
	switch a.Kind {
	case ActionDeviceCapability:
		if a.DeviceID == "" || a.Capability == "" {
			return invalid("action", "device_capability requires device_id and capability")
		}
	case ActionSceneActivate:
		if a.SceneID == "" {
			return invalid("action.scene_id", "required")
		}
	case ActionFlowTrigger:
		if a.FlowID == "" {
			return invalid("action.flow_id", "required")
		}
	case ActionEmitEvent:
		if a.Event == "" {
			return invalid("action.event", "required")
		}
	case ActionSetSetting:
		if a.Setting == "" {
			return invalid("action.setting", "required")
		}
	case ActionLogMessage:
		if a.Message == "" {
			return invalid("action.message", "required")
		}
	}
	return nil
}

func validateCondition(i int, c Condition) error {
	field := func(name string) string { return fmt.Sprintf("conditions[%d].%s", i, name) }
	if !c.Kind.Valid() {
		return invalid(field("kind"), fmt.Sprintf("unknown kind %q", c.Kind))
	}
	switch c.Kind {
	case CondTimeRange:
		if c.Start < 0 || c.Start > 1439 || c.End < 0 || c.End > 1439 {
			return invalid(field("start/end"), "minute-of-day must be in 0..1439")
		}
	case CondPresence:
		if c.ExpectedState == "" {
			return invalid(field("expected_state"), "required")
		}
	case CondDeviceState:
		if c.DeviceID == "" || c.Capability == "" {
			return invalid(field("device_id"), "device_state requires device_id and capability")
		}
		if !c.Operator.Valid() {
			return invalid(field("operator"), "must be equals/not_equals/greater_than/less_than")
		}
	case CondEnergyPrice:
		if c.Level == "" && !c.Operator.Valid() {
			return invalid(field("operator"), "energy_price requires operator+price or level")
		}
	}
	return nil
}
