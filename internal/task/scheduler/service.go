package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"homeauto/internal/eventbus"
	"homeauto/internal/homeapi"
	"homeauto/internal/storage"
	"homeauto/internal/task/conditions"
	"homeauto/internal/task/engine"
	"homeauto/internal/task/history"
	"homeauto/internal/task/policy"
	"homeauto/internal/task/repo"
	logx "homeauto/pkg/logx"
)

// parser accepts standard 5-field specs plus descriptors for the optimizer
// trigger and the @every scan/drain entries.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger
	bus eventbus.Bus
	loc *time.Location

	repo  *repo.Repository
	queue *engine.Queue
	exec  *engine.Executor
	conds *conditions.Evaluator
	cons  *policy.ConstraintChecker
	hist  *history.Log
	store storage.Store
	notif Notifier

	c      *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc

	// retryTimers holds the pending re-insertion timer per task id.
	retryTimers map[string]*time.Timer

	// now is the scheduling clock in the configured timezone. Dueness,
	// recurrence math and constraint checks all read it; tests override it.
	now func() time.Time
}

func New(cfg Config, clients homeapi.Clients, store storage.Store, notif Notifier, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	s := &Service{
		cfg:         cfg,
		log:         log,
		bus:         bus,
		queue:       engine.NewQueue(),
		exec:        engine.NewExecutor(clients, bus, log.With(logx.String("comp", "executor"))),
		conds:       conditions.New(clients, log.With(logx.String("comp", "conditions"))),
		cons:        policy.NewConstraintChecker(clients.Energy, log.With(logx.String("comp", "constraints"))),
		hist:        history.New(cfg.HistorySize),
		store:       store,
		notif:       notif,
		retryTimers: map[string]*time.Timer{},
	}
	s.loc = s.loadLocation()
	s.now = func() time.Time { return time.Now().In(s.loc) }
	// The repository shares the scheduler clock, so a daily {hour: 7} task is
	// anchored at 07:00 in the configured zone, not host-local time.
	s.repo = repo.New(func() time.Time { return s.now() })
	return s
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

// Apply updates tunables at runtime. Interval or timezone changes restart
// the cron triggers.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	s.loc = s.loadLocation()
	running := s.c != nil
	s.mu.Unlock()

	if !running {
		return
	}
	if prev.ScanInterval != cfg.ScanInterval ||
		prev.DrainInterval != cfg.DrainInterval ||
		prev.OptimizeSpec != cfg.OptimizeSpec ||
		strings.TrimSpace(prev.Timezone) != strings.TrimSpace(cfg.Timezone) {
		ctx := context.Background()
		s.Stop(ctx)
		s.Start(ctx)
	}
}

// Start restores persisted state and begins the scan/drain/optimize cycle.
// It is idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil || !s.cfg.Enabled {
		return
	}

	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.loc = s.loadLocation()

	s.restoreLocked(ctx)

	c := cron.New(cron.WithParser(parser), cron.WithLocation(s.loc))

	// Each trigger skips its tick if the previous one is still running, so
	// a slow action cannot stack drain cycles.
	chain := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger))
	runCtx := s.runCtx
	mustAdd := func(spec string, job func()) {
		if _, err := c.AddJob(spec, chain.Then(cron.FuncJob(job))); err != nil {
			s.log.Error("trigger register failed", logx.String("spec", spec), logx.Err(err))
		}
	}
	mustAdd("@every "+s.cfg.ScanInterval.String(), func() { s.Scan(runCtx) })
	mustAdd("@every "+s.cfg.DrainInterval.String(), func() { s.DrainOne(runCtx) })
	mustAdd(s.cfg.OptimizeSpec, func() { s.Optimize(runCtx) })

	s.c = c
	c.Start()
	s.log.Info("scheduler started",
		logx.Duration("scan", s.cfg.ScanInterval),
		logx.Duration("drain", s.cfg.DrainInterval),
		logx.String("optimize", s.cfg.OptimizeSpec),
		logx.String("tz", s.loc.String()),
		logx.Int("tasks", s.repo.Len()))
}

// Stop halts the triggers and pending retry timers, then flushes state.
// Persisted retrying tasks resume as pending on the next Start.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	c := s.c
	s.c = nil
	cancel := s.cancel
	s.cancel = nil
	for id, t := range s.retryTimers {
		t.Stop()
		delete(s.retryTimers, id)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			// best-effort
		}
	}

	s.persist(ctx)
	s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
}

func (s *Service) loadLocation() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone, using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// restoreLocked loads tasks and history from the store.
func (s *Service) restoreLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	if tasks, err := s.store.LoadTasks(ctx); err != nil {
		s.log.Warn("task restore failed", logx.Err(err))
	} else if len(tasks) > 0 {
		s.repo.Restore(tasks, s.now())
		s.log.Info("tasks restored", logx.Int("count", len(tasks)))
	}
	if records, err := s.store.LoadHistory(ctx); err != nil {
		s.log.Warn("history restore failed", logx.Err(err))
	} else if len(records) > 0 {
		s.hist.Replace(records)
	}
}

// persist flushes the task set and history. Failures are logged and
// swallowed; persistence must never block scheduling.
func (s *Service) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	tasks := s.repo.Snapshot()
	s.mu.Unlock()
	if err := s.store.SaveTasks(ctx, tasks); err != nil {
		s.log.Warn("task flush failed", logx.Err(err))
	}
	if err := s.store.SaveHistory(ctx, s.hist.Records()); err != nil {
		s.log.Warn("history flush failed", logx.Err(err))
	}
}

func (s *Service) publish(typ string, ev TaskEvent) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}
