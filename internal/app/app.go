// Package app wires configuration, logging, storage, the simulated home
// platform, the notifier and the scheduler into one daemon lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"homeauto/internal/config"
	"homeauto/internal/eventbus"
	"homeauto/internal/homeapi/sim"
	"homeauto/internal/notifier"
	"homeauto/internal/storage"
	"homeauto/internal/task/scheduler"
	logx "homeauto/pkg/logx"
)

type App struct {
	cfgPath string
	cfgm    *config.ConfigManager

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store
	hub   *sim.Hub

	notif *notifier.Service
	sched *scheduler.Service

	sup *Supervisor
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, logSvc.Logger().With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	hub := sim.New(logSvc.Logger().With(logx.String("comp", "home")))
	seedHub(hub, cfg.Home)

	ncfg, sinks, err := mapNotifierConfig(cfg, logSvc.Logger().With(logx.String("comp", "notify")))
	if err != nil {
		return nil, err
	}
	notifSvc := notifier.New(ncfg, sinks, logSvc.Logger().With(logx.String("comp", "notifier")))

	scfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		return nil, err
	}
	schedSvc := scheduler.New(scfg, hub.Clients(), store, notifSvc, bus,
		logSvc.Logger().With(logx.String("comp", "scheduler")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		hub:     hub,
		notif:   notifSvc,
		sched:   schedSvc,
	}, nil
}

// Scheduler exposes the task API for embedding callers.
func (a *App) Scheduler() *scheduler.Service { return a.sched }

// Done is closed when the app context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, a.log)
	runCtx := a.sup.Context()

	// Transactional config reload: validate before commit/publish.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapSchedulerConfig(cfg); err != nil {
			return err
		}
		if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
			}
		}
		if _, _, err := mapNotifierConfig(cfg, logx.Nop()); err != nil {
			return err
		}
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		return nil
	})

	if a.notif.Enabled() {
		a.notif.Start(runCtx)
	}
	if a.sched.Enabled() {
		a.sched.Start(runCtx)
	}

	cfg := a.cfgm.Get()
	if cfg != nil && strings.TrimSpace(cfg.Scheduler.TasksFile) != "" {
		a.seedTasks(runCtx, strings.TrimSpace(cfg.Scheduler.TasksFile))
	}

	// Debug-level event mirror; components subscribe themselves for real work.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// reloadLoop applies hot config updates published by the watcher.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			sections, attrs := config.SummarizeConfigChange(lastApplied, newCfg)
			lastApplied = newCfg
			if len(sections) == 0 {
				a.log.Debug("config reload received, but no effective changes detected")
				continue
			}

			for _, s := range sections {
				if s == "storage" {
					a.log.Warn("storage config changed; restart required for changes to take effect")
					break
				}
			}

			a.logs.Apply(logx.Config{
				Level:   newCfg.Logging.Level,
				Console: newCfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: newCfg.Logging.File.Enabled,
					Path:    newCfg.Logging.File.Path,
				},
			})

			seedHub(a.hub, newCfg.Home)

			if scfg, err := mapSchedulerConfig(newCfg); err != nil {
				a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
			} else {
				prev := a.sched.Enabled()
				a.sched.Apply(scfg)
				switch {
				case prev && !scfg.Enabled:
					a.log.Info("scheduler disabled via config")
					stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
					a.sched.Stop(stopCtx)
					cancel()
				case !prev && scfg.Enabled:
					a.log.Info("scheduler enabled via config")
					a.sched.Start(ctx)
				}
			}

			if ncfg, _, err := mapNotifierConfig(newCfg, logx.Nop()); err != nil {
				a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
			} else {
				prev := a.notif.Enabled()
				a.notif.Apply(ncfg)
				switch {
				case prev && !ncfg.Enabled:
					a.log.Info("notifier disabled via config")
					stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
					a.notif.Stop(stopCtx)
					cancel()
				case !prev && ncfg.Enabled:
					a.log.Info("notifier enabled via config")
					a.notif.Start(ctx)
				}
			}

			fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
			a.log.Info("config reloaded", fields...)
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	a.log.Info("stopping")
	if a.sup != nil {
		a.sup.Cancel()
	}

	// Bound each shutdown step so one component cannot stall the stop.
	step := func(name string, max time.Duration, fn func(context.Context)) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()
		start := time.Now()
		fn(stepCtx)
		a.log.Debug("stop step done", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	step("scheduler", 3*time.Second, func(c context.Context) { a.sched.Stop(c) })
	step("notifier", 2*time.Second, func(c context.Context) { a.notif.Stop(c) })
	if a.store != nil {
		step("storage", time.Second, func(context.Context) {
			if err := a.store.Close(); err != nil {
				a.log.Warn("storage close failed", logx.Err(err))
			}
		})
	}

	if a.sup != nil {
		step("supervisor", 2*time.Second, func(c context.Context) {
			if err := a.sup.Wait(c); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				a.log.Warn("background goroutines exited with error", logx.Err(err))
			}
		})
	}

	a.log.Info("stopped")
	a.logs.Close()
	return nil
}

func seedHub(hub *sim.Hub, home config.HomeConfig) {
	if p := strings.TrimSpace(home.Presence); p != "" {
		hub.SetPresence(p)
	}
	if home.EnergyPrice > 0 || strings.TrimSpace(home.EnergyLevel) != "" {
		level := strings.TrimSpace(home.EnergyLevel)
		if level == "" {
			level = "normal"
		}
		hub.SetPrice(home.EnergyPrice, level)
	}
}
