package policy

import (
	"fmt"
	"time"

	"homeauto/internal/task"
)

// DependenciesSatisfied checks that every prerequisite task has completed,
// optionally within the task's dependency freshness window.
//
// An unknown dependency id is vacuously satisfied. That mirrors the original
// design (a typo'd id silently becomes a no-op); it is deliberate and
// documented rather than fixed.
func DependenciesSatisfied(view TaskView, t *task.Task, now time.Time) (bool, string) {
	if len(t.Dependencies) == 0 {
		return true, ""
	}

	var maxAge time.Duration
	if t.Constraints != nil {
		maxAge = t.Constraints.DependencyMaxAge
	}

	for _, id := range t.Dependencies {
		dep, ok := view.Get(id)
		if !ok {
			continue
		}
		if dep.Status != task.StatusCompleted {
			return false, fmt.Sprintf("dependency %s is %s", dep.Name, dep.Status)
		}
		if maxAge > 0 {
			if dep.LastExecution.IsZero() || now.Sub(dep.LastExecution) > maxAge {
				return false, fmt.Sprintf("dependency %s completion older than %s", dep.Name, maxAge)
			}
		}
	}
	return true, ""
}
