package conditions

import (
	"context"
	"errors"
	"testing"
	"time"

	"homeauto/internal/homeapi"
	"homeauto/internal/task"
	logx "homeauto/pkg/logx"
)

type fakePresence struct {
	status string
	err    error
}

func (f *fakePresence) Status(ctx context.Context) (homeapi.PresenceStatus, error) {
	return homeapi.PresenceStatus{Status: f.status}, f.err
}

type fakeDevices struct {
	values map[string]any
	err    error
}

func (f *fakeDevices) SetCapability(ctx context.Context, deviceID, capability string, value any) error {
	return nil
}

func (f *fakeDevices) GetCapability(ctx context.Context, deviceID, capability string) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[deviceID+"/"+capability]
	if !ok {
		return nil, errors.New("unknown capability")
	}
	return v, nil
}

type fakeEnergy struct {
	price homeapi.EnergyPrice
	err   error
}

func (f *fakeEnergy) CurrentPrice(ctx context.Context) (homeapi.EnergyPrice, error) {
	return f.price, f.err
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestTimeRange(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		start, end int
		now        time.Time
		want       bool
	}{
		{name: "inside plain range", start: 8 * 60, end: 17 * 60, now: at(12, 0), want: true},
		{name: "outside plain range", start: 8 * 60, end: 17 * 60, now: at(18, 0), want: false},
		{name: "inclusive start", start: 8 * 60, end: 17 * 60, now: at(8, 0), want: true},
		{name: "inclusive end", start: 8 * 60, end: 17 * 60, now: at(17, 0), want: true},
		{name: "overnight late evening", start: 22 * 60, end: 6 * 60, now: at(23, 30), want: true},
		{name: "overnight early morning", start: 22 * 60, end: 6 * 60, now: at(5, 0), want: true},
		{name: "overnight midday miss", start: 22 * 60, end: 6 * 60, now: at(12, 0), want: false},
	}
	ev := New(homeapi.Clients{}, logx.Nop())
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tk := &task.Task{Name: "t", Conditions: []task.Condition{{Kind: task.CondTimeRange, Start: tt.start, End: tt.end}}}
			if got := ev.Satisfied(context.Background(), tk, tt.now); got != tt.want {
				t.Fatalf("Satisfied = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPresenceFailsOpen(t *testing.T) {
	t.Parallel()
	cond := []task.Condition{{Kind: task.CondPresence, ExpectedState: "home"}}
	tk := &task.Task{Name: "t", Conditions: cond}
	now := at(12, 0)

	// Matching state.
	ev := New(homeapi.Clients{Presence: &fakePresence{status: "home"}}, logx.Nop())
	if !ev.Satisfied(context.Background(), tk, now) {
		t.Fatal("expected satisfied for matching presence")
	}

	// Mismatching state.
	ev = New(homeapi.Clients{Presence: &fakePresence{status: "away"}}, logx.Nop())
	if ev.Satisfied(context.Background(), tk, now) {
		t.Fatal("expected unsatisfied for mismatching presence")
	}

	// Lookup failure and missing collaborator both fail open.
	ev = New(homeapi.Clients{Presence: &fakePresence{err: errors.New("down")}}, logx.Nop())
	if !ev.Satisfied(context.Background(), tk, now) {
		t.Fatal("expected fail-open on presence lookup error")
	}
	ev = New(homeapi.Clients{}, logx.Nop())
	if !ev.Satisfied(context.Background(), tk, now) {
		t.Fatal("expected fail-open without presence collaborator")
	}
}

func TestDeviceStateFailsClosed(t *testing.T) {
	t.Parallel()
	cond := []task.Condition{{
		Kind:       task.CondDeviceState,
		DeviceID:   "sensor-1",
		Capability: "temperature",
		Operator:   task.OpGreaterThan,
		Value:      21.0,
	}}
	tk := &task.Task{Name: "t", Conditions: cond}
	now := at(12, 0)

	ev := New(homeapi.Clients{Devices: &fakeDevices{values: map[string]any{"sensor-1/temperature": 25.0}}}, logx.Nop())
	if !ev.Satisfied(context.Background(), tk, now) {
		t.Fatal("expected satisfied for 25 > 21")
	}

	ev = New(homeapi.Clients{Devices: &fakeDevices{values: map[string]any{"sensor-1/temperature": 18.0}}}, logx.Nop())
	if ev.Satisfied(context.Background(), tk, now) {
		t.Fatal("expected unsatisfied for 18 > 21")
	}

	// Read failure and missing collaborator both fail closed.
	ev = New(homeapi.Clients{Devices: &fakeDevices{err: errors.New("down")}}, logx.Nop())
	if ev.Satisfied(context.Background(), tk, now) {
		t.Fatal("expected fail-closed on device read error")
	}
	ev = New(homeapi.Clients{}, logx.Nop())
	if ev.Satisfied(context.Background(), tk, now) {
		t.Fatal("expected fail-closed without device collaborator")
	}
}

func TestEnergyPrice(t *testing.T) {
	t.Parallel()
	now := at(12, 0)

	byPrice := &task.Task{Name: "t", Conditions: []task.Condition{{
		Kind: task.CondEnergyPrice, Operator: task.OpLessThan, Price: 0.30,
	}}}
	ev := New(homeapi.Clients{Energy: &fakeEnergy{price: homeapi.EnergyPrice{Price: 0.22, Level: "normal"}}}, logx.Nop())
	if !ev.Satisfied(context.Background(), byPrice, now) {
		t.Fatal("expected satisfied for 0.22 < 0.30")
	}
	ev = New(homeapi.Clients{Energy: &fakeEnergy{price: homeapi.EnergyPrice{Price: 0.45}}}, logx.Nop())
	if ev.Satisfied(context.Background(), byPrice, now) {
		t.Fatal("expected unsatisfied for 0.45 < 0.30")
	}

	byLevel := &task.Task{Name: "t", Conditions: []task.Condition{{Kind: task.CondEnergyPrice, Level: "low"}}}
	ev = New(homeapi.Clients{Energy: &fakeEnergy{price: homeapi.EnergyPrice{Level: "low"}}}, logx.Nop())
	if !ev.Satisfied(context.Background(), byLevel, now) {
		t.Fatal("expected satisfied for matching level")
	}

	// Lookup failure fails open.
	ev = New(homeapi.Clients{Energy: &fakeEnergy{err: errors.New("down")}}, logx.Nop())
	if !ev.Satisfied(context.Background(), byPrice, now) {
		t.Fatal("expected fail-open on energy lookup error")
	}
}

func TestConditionsAreANDCombined(t *testing.T) {
	t.Parallel()
	now := at(12, 0)
	tk := &task.Task{Name: "t", Conditions: []task.Condition{
		{Kind: task.CondTimeRange, Start: 0, End: 1439},
		{Kind: task.CondPresence, ExpectedState: "home"},
	}}
	ev := New(homeapi.Clients{Presence: &fakePresence{status: "away"}}, logx.Nop())
	if ev.Satisfied(context.Background(), tk, now) {
		t.Fatal("one unmet condition should fail the whole list")
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		op        task.Operator
		got, want any
		result    bool
	}{
		{name: "numeric equals across types", op: task.OpEquals, got: 21, want: 21.0, result: true},
		{name: "string equals", op: task.OpEquals, got: "on", want: "on", result: true},
		{name: "not equals", op: task.OpNotEquals, got: "on", want: "off", result: true},
		{name: "greater than", op: task.OpGreaterThan, got: 5.5, want: 5, result: true},
		{name: "less than", op: task.OpLessThan, got: 4, want: 5, result: true},
		{name: "ordering needs numbers", op: task.OpGreaterThan, got: "warm", want: "cold", result: false},
		{name: "numeric string coerces", op: task.OpGreaterThan, got: "7", want: 5, result: true},
		{name: "bool equals", op: task.OpEquals, got: true, want: true, result: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := compare(tt.op, tt.got, tt.want); got != tt.result {
				t.Fatalf("compare(%v, %v, %v) = %v, want %v", tt.op, tt.got, tt.want, got, tt.result)
			}
		})
	}
}
