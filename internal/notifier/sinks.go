package notifier

import (
	"context"

	logx "homeauto/pkg/logx"
)

// LogSink writes notifications to the structured log. It is the fallback
// sink when no external channel is configured.
type LogSink struct {
	log logx.Logger
}

func NewLogSink(log logx.Logger) *LogSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, n Notification) error {
	_ = ctx
	s.log.Warn("NOTIFY: " + n.Message)
	return nil
}
