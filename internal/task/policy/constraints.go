package policy

import (
	"context"
	"fmt"
	"time"

	"homeauto/internal/homeapi"
	"homeauto/internal/task"
	logx "homeauto/pkg/logx"
)

// ConstraintChecker validates a task's runtime constraints against the
// current system state. A failed check defers the task; it is never treated
// as a failure.
type ConstraintChecker struct {
	energy homeapi.EnergyPriceService
	log    logx.Logger
}

func NewConstraintChecker(energy homeapi.EnergyPriceService, log logx.Logger) *ConstraintChecker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &ConstraintChecker{energy: energy, log: log}
}

// Check returns ok=false with a reason when the task must be deferred.
func (c *ConstraintChecker) Check(ctx context.Context, view TaskView, t *task.Task, now time.Time) (bool, string) {
	cons := t.Constraints
	if cons == nil {
		return true, ""
	}

	for _, h := range cons.ExcludeHours {
		if now.Hour() == h {
			return false, fmt.Sprintf("blackout hour %d", h)
		}
	}

	if cons.MaxConcurrent > 0 {
		running := view.CountByStatus(task.StatusRunning)
		if running >= cons.MaxConcurrent {
			return false, fmt.Sprintf("%d tasks running, ceiling %d", running, cons.MaxConcurrent)
		}
	}

	if cons.MaxEnergyPrice != nil && c.energy != nil {
		p, err := c.energy.CurrentPrice(ctx)
		if err != nil {
			// Price lookup failure does not block execution; the explicit
			// ceiling only applies to a known price.
			c.log.Debug("energy price lookup failed, skipping price constraint", logx.String("task", t.Name), logx.Err(err))
		} else if p.Price > *cons.MaxEnergyPrice {
			return false, fmt.Sprintf("energy price %.4f above ceiling %.4f", p.Price, *cons.MaxEnergyPrice)
		}
	}

	return true, ""
}
