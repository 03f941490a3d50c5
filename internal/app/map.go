package app

import (
	"fmt"
	"strings"
	"time"

	"homeauto/internal/config"
	"homeauto/internal/notifier"
	"homeauto/internal/storage"
	"homeauto/internal/task/recurrence"
	"homeauto/internal/task/scheduler"
	logx "homeauto/pkg/logx"
)

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	if cfg == nil {
		return scheduler.Config{}, nil
	}
	sc := cfg.Scheduler

	scan, err := config.ParseDurationField("scheduler.scan_interval", sc.ScanInterval)
	if err != nil {
		return scheduler.Config{}, err
	}
	drain, err := config.ParseDurationField("scheduler.drain_interval", sc.DrainInterval)
	if err != nil {
		return scheduler.Config{}, err
	}
	deferDelay, err := config.ParseDurationField("scheduler.defer_delay", sc.DeferDelay)
	if err != nil {
		return scheduler.Config{}, err
	}
	if spec := strings.TrimSpace(sc.OptimizeSpec); spec != "" {
		if err := recurrence.ValidateCronSpec(spec); err != nil {
			return scheduler.Config{}, fmt.Errorf("scheduler.optimize_spec: %w", err)
		}
	}
	if sc.HistorySize < 0 {
		return scheduler.Config{}, fmt.Errorf("scheduler.history_size must be >= 0")
	}

	return scheduler.Config{
		Enabled:       sc.Enabled,
		ScanInterval:  scan,
		DrainInterval: drain,
		OptimizeSpec:  strings.TrimSpace(sc.OptimizeSpec),
		DeferDelay:    deferDelay,
		HistorySize:   sc.HistorySize,
		Timezone:      sc.Timezone,
	}, nil
}

// mapNotifierConfig builds the pipeline config and its sinks. An omitted
// section means enabled with just the log sink.
func mapNotifierConfig(cfg *config.Config, log logx.Logger) (notifier.Config, []notifier.Sink, error) {
	nc := cfg.Notifier
	if nc == nil {
		nc = &config.NotifierConfig{Enabled: true}
	}

	retryBase, err := config.ParseDurationField("notifier.retry_base", nc.RetryBase)
	if err != nil {
		return notifier.Config{}, nil, err
	}
	dedup, err := config.ParseDurationField("notifier.dedup_window", nc.DedupWindow)
	if err != nil {
		return notifier.Config{}, nil, err
	}
	if nc.QueueSize < 0 {
		return notifier.Config{}, nil, fmt.Errorf("notifier.queue_size must be >= 0")
	}
	if nc.RatePerSec < 0 {
		return notifier.Config{}, nil, fmt.Errorf("notifier.rate_per_sec must be >= 0")
	}

	sinks := []notifier.Sink{notifier.NewLogSink(log)}
	if tg := nc.Telegram; tg != nil && strings.TrimSpace(tg.Token) != "" {
		sink, err := notifier.NewTelegramSink(notifier.TelegramConfig{Token: tg.Token, ChatID: tg.ChatID})
		if err != nil {
			return notifier.Config{}, nil, fmt.Errorf("notifier.telegram: %w", err)
		}
		sinks = append(sinks, sink)
	}

	return notifier.Config{
		Enabled:     nc.Enabled,
		QueueSize:   nc.QueueSize,
		RatePerSec:  nc.RatePerSec,
		RetryMax:    nc.RetryMax,
		RetryBase:   retryBase,
		DedupWindow: dedup,
	}, sinks, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 1*time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}
