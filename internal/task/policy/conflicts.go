package policy

import (
	"homeauto/internal/task"
)

// Conflicts reports whether two tasks target the same resource: the same
// device, the same scene, or one task's declared conflicting zones covering
// the other's action zone.
func Conflicts(a, b *task.Task) bool {
	if a.ID == b.ID {
		return false
	}
	if a.Action.DeviceID != "" && a.Action.DeviceID == b.Action.DeviceID {
		return true
	}
	if a.Action.SceneID != "" && a.Action.SceneID == b.Action.SceneID {
		return true
	}
	if zoneOverlap(a, b) || zoneOverlap(b, a) {
		return true
	}
	return false
}

func zoneOverlap(claimer, target *task.Task) bool {
	if target.Action.Zone == "" {
		return false
	}
	for _, z := range claimer.Metadata.ConflictingZones {
		if z == target.Action.Zone {
			return true
		}
	}
	return false
}

// FindConflicts returns the running or queued tasks that conflict with t.
func FindConflicts(view TaskView, t *task.Task) []*task.Task {
	var out []*task.Task
	for _, other := range view.ListByStatus(task.StatusRunning, task.StatusQueued) {
		if Conflicts(t, other) {
			out = append(out, other)
		}
	}
	return out
}
