// Package conditions evaluates a task's predicate list against the current
// state of the home.
//
// Failure policy is per predicate kind, not uniform:
//   - presence and energy_price fail OPEN (a transient lookup failure must
//     not deadlock automation),
//   - device_state fails CLOSED (executing against unknown device state is
//     unsafe).
package conditions

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"homeauto/internal/homeapi"
	"homeauto/internal/task"
	logx "homeauto/pkg/logx"
)

type Evaluator struct {
	clients homeapi.Clients
	log     logx.Logger
}

func New(clients homeapi.Clients, log logx.Logger) *Evaluator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Evaluator{clients: clients, log: log}
}

// Satisfied reports whether all of the task's conditions hold at now.
// An empty condition list is vacuously true.
func (e *Evaluator) Satisfied(ctx context.Context, t *task.Task, now time.Time) bool {
	for i := range t.Conditions {
		if !e.one(ctx, t, t.Conditions[i], now) {
			return false
		}
	}
	return true
}

func (e *Evaluator) one(ctx context.Context, t *task.Task, c task.Condition, now time.Time) bool {
	switch c.Kind {
	case task.CondTimeRange:
		return inTimeRange(c.Start, c.End, now)

	case task.CondPresence:
		if e.clients.Presence == nil {
			return true // fail open
		}
		st, err := e.clients.Presence.Status(ctx)
		if err != nil {
			e.log.Debug("presence lookup failed, treating as satisfied", logx.String("task", t.Name), logx.Err(err))
			return true // fail open
		}
		return st.Status == c.ExpectedState

	case task.CondDeviceState:
		if e.clients.Devices == nil {
			return false // fail closed
		}
		v, err := e.clients.Devices.GetCapability(ctx, c.DeviceID, c.Capability)
		if err != nil {
			e.log.Debug("device state read failed, treating as not satisfied", logx.String("task", t.Name), logx.String("device", c.DeviceID), logx.Err(err))
			return false // fail closed
		}
		return compare(c.Operator, v, c.Value)

	case task.CondWeather:
		// Weather collaborator is optional; stubbed true.
		return true

	case task.CondEnergyPrice:
		if e.clients.Energy == nil {
			return true // fail open
		}
		p, err := e.clients.Energy.CurrentPrice(ctx)
		if err != nil {
			e.log.Debug("energy price lookup failed, treating as satisfied", logx.String("task", t.Name), logx.Err(err))
			return true // fail open
		}
		if c.Level != "" {
			return p.Level == c.Level
		}
		return compare(c.Operator, p.Price, c.Price)
	}
	// Unknown kinds are rejected at validation; anything else is unmet.
	return false
}

// inTimeRange checks minute-of-day membership in [start,end], where
// start > end denotes an overnight range wrapping midnight.
func inTimeRange(start, end int, now time.Time) bool {
	m := now.Hour()*60 + now.Minute()
	if start <= end {
		return m >= start && m <= end
	}
	return m >= start || m <= end
}

// compare applies op to an observed and an expected value. Ordering
// operators require both sides to be numeric; equality falls back to string
// comparison for non-numeric values.
func compare(op task.Operator, got, want any) bool {
	gf, gok := toFloat(got)
	wf, wok := toFloat(want)
	switch op {
	case task.OpEquals:
		if gok && wok {
			return gf == wf
		}
		return fmt.Sprint(got) == fmt.Sprint(want)
	case task.OpNotEquals:
		if gok && wok {
			return gf != wf
		}
		return fmt.Sprint(got) != fmt.Sprint(want)
	case task.OpGreaterThan:
		return gok && wok && gf > wf
	case task.OpLessThan:
		return gok && wok && gf < wf
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}
