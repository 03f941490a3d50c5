package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"homeauto/internal/task"
	logx "homeauto/pkg/logx"
)

// seedTasks loads task definitions from a JSON file and registers the ones
// not present yet. Matching is by name, so restarts with a persisted store
// do not duplicate seeded tasks.
func (a *App) seedTasks(ctx context.Context, path string) {
	b, err := os.ReadFile(path)
	if err != nil {
		a.log.Warn("tasks file unreadable", logx.String("path", path), logx.Err(err))
		return
	}

	var defs []task.Task
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&defs); err != nil {
		a.log.Warn("tasks file invalid", logx.String("path", path), logx.Err(err))
		return
	}

	known := map[string]bool{}
	for _, t := range a.sched.ListTasks() {
		known[t.Name] = true
	}

	added := 0
	for i := range defs {
		def := &defs[i]
		if known[def.Name] {
			continue
		}
		if _, err := a.sched.CreateTask(ctx, def); err != nil {
			a.log.Warn("seed task rejected", logx.String("name", def.Name), logx.Err(err))
			continue
		}
		added++
	}
	if added > 0 {
		a.log.Info("tasks seeded", logx.String("path", path), logx.Int("added", added))
	}
}
