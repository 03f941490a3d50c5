// Package engine holds the execution side of the scheduler: the FIFO queue
// and the executor that runs one task's action under a timeout.
package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"homeauto/internal/eventbus"
	"homeauto/internal/homeapi"
	"homeauto/internal/task"
	logx "homeauto/pkg/logx"
)

// Result is the outcome of a single execution attempt.
type Result struct {
	Err      error
	TimedOut bool
	Duration time.Duration
}

func (r Result) Success() bool { return r.Err == nil }

// Executor runs a task's action against the home-automation collaborators.
// It is stateless; status bookkeeping belongs to the scheduler.
type Executor struct {
	clients homeapi.Clients
	bus     eventbus.Bus
	log     logx.Logger
}

func NewExecutor(clients homeapi.Clients, bus eventbus.Bus, log logx.Logger) *Executor {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Executor{clients: clients, bus: bus, log: log}
}

// Execute races the task's action against the task timeout.
//
// If the timer fires first the attempt fails with ErrTimeout even if the
// underlying action eventually completes; its eventual result is neither
// awaited nor reported. The action goroutine gets a cancelled context and a
// buffered channel so it can always finish and exit.
func (e *Executor) Execute(ctx context.Context, t *task.Task) Result {
	start := time.Now()

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = task.DefaultTimeout
	}

	actionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("action panic", logx.String("task", t.Name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- e.runAction(actionCtx, t)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return Result{Err: err, Duration: time.Since(start)}
	case <-timer.C:
		return Result{
			Err:      fmt.Errorf("%w after %s", ErrTimeout, timeout),
			TimedOut: true,
			Duration: time.Since(start),
		}
	case <-ctx.Done():
		return Result{Err: ctx.Err(), Duration: time.Since(start)}
	}
}

func (e *Executor) runAction(ctx context.Context, t *task.Task) error {
	a := t.Action
	switch a.Kind {
	case task.ActionDeviceCapability:
		if e.clients.Devices == nil {
			return fmt.Errorf("device service unavailable")
		}
		return e.clients.Devices.SetCapability(ctx, a.DeviceID, a.Capability, a.Value)

	case task.ActionSceneActivate:
		if e.clients.Scenes == nil {
			return fmt.Errorf("scene service unavailable")
		}
		return e.clients.Scenes.Activate(ctx, a.SceneID)

	case task.ActionFlowTrigger:
		if e.clients.Flows == nil {
			return fmt.Errorf("flow service unavailable")
		}
		return e.clients.Flows.Trigger(ctx, a.FlowID, a.Tokens)

	case task.ActionEmitEvent:
		if e.bus != nil {
			e.bus.Publish(eventbus.Event{Type: a.Event, Data: a.Value})
		}
		return nil

	case task.ActionSetSetting:
		if e.clients.Settings == nil {
			return fmt.Errorf("settings store unavailable")
		}
		return e.clients.Settings.SetSetting(ctx, a.Setting, a.Value)

	case task.ActionLogMessage:
		e.log.Info(a.Message, logx.String("task", t.Name))
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
}
