package scheduler

import (
	"context"
	"fmt"

	"homeauto/internal/task/optimizer"
	logx "homeauto/pkg/logx"
)

// Optimize runs the daily schedule optimization pass over all tasks and
// persists any shifted schedules.
func (s *Service) Optimize(ctx context.Context) {
	s.mu.Lock()
	adjusted := optimizer.Run(s.repo.List(nil), s.hist, s.now())
	s.mu.Unlock()

	for _, a := range adjusted {
		s.log.Info("schedule shifted away from failure hour",
			logx.String("task", a.TaskName),
			logx.Int("from_hour", a.FromHour),
			logx.Int("to_hour", a.ToHour))
		if s.notif != nil {
			s.notif.NotifyKeyed("optimize:"+a.TaskID,
				fmt.Sprintf("Shifted %q from %02d:00 to %02d:00 after repeated failures", a.TaskName, a.FromHour, a.ToHour))
		}
	}
	if len(adjusted) > 0 {
		s.persist(ctx)
	}
}
