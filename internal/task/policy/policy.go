// Package policy gates due tasks before they may enter the execution queue:
// runtime constraints, dependency ordering and conflict arbitration.
//
// Rejections here are deferrals, never errors. A constrained or conflicting
// task is pushed a few minutes into the future; a task with unmet
// dependencies is simply left pending for the next scan.
package policy

import (
	"time"

	"homeauto/internal/task"
)

// DeferDelay is how far a constrained or out-prioritized task is pushed
// into the future before it is scanned again.
const DeferDelay = 5 * time.Minute

// TaskView is the read access the policy checks need into the live task
// set. The scheduler's repository implements it; checks run under the
// scheduler lock, so implementations need no locking of their own.
type TaskView interface {
	Get(id string) (*task.Task, bool)
	CountByStatus(st task.Status) int
	ListByStatus(statuses ...task.Status) []*task.Task
}
