// Package notifier delivers user-visible notifications (terminal task
// failures, optimizer adjustments) through configured sinks.
//
// Delivery is async: bounded queue + worker + rate limit + bounded retry +
// dedup window. Notify never blocks the scheduler.
package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "homeauto/pkg/logx"
)

var (
	ErrDisabled  = errors.New("notifier disabled")
	ErrQueueFull = errors.New("notifier queue full")
)

// Config controls the notification pipeline.
type Config struct {
	Enabled     bool
	QueueSize   int
	RatePerSec  int
	RetryMax    int
	RetryBase   time.Duration
	DedupWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 3
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.DedupWindow < 0 {
		c.DedupWindow = 0
	}
	return c
}

// Notification is one user-visible message. Key, when set, is the dedup
// key; identical keys within the dedup window are dropped.
type Notification struct {
	Message string
	Key     string
}

// Sink delivers a notification to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	sinks   []Sink
	limiter *rate.Limiter

	queue    chan Notification
	stopCh   chan struct{}
	workerWG sync.WaitGroup

	dmu   sync.Mutex
	dedup map[string]time.Time

	dropped uint64
}

func New(cfg Config, sinks []Sink, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	return &Service{
		cfg:     cfg,
		log:     log,
		sinks:   sinks,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		dedup:   map[string]time.Time{},
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	s.mu.Unlock()
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.stopCh != nil {
		return
	}
	s.queue = make(chan Notification, s.cfg.QueueSize)
	s.stopCh = make(chan struct{})
	queue := s.queue
	stopCh := s.stopCh

	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		s.worker(ctx, stopCh, queue)
	}()
	s.log.Info("notifier started", logx.Int("sinks", len(s.sinks)), logx.Int("rate_per_sec", s.cfg.RatePerSec))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	stopCh := s.stopCh
	s.stopCh = nil
	s.queue = nil
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Notify enqueues a notification; it never blocks. Drops are counted and
// logged, not surfaced: notifications are fire-and-forget by contract.
func (s *Service) Notify(msg string) { s.NotifyKeyed("", msg) }

func (s *Service) NotifyKeyed(key, msg string) {
	s.mu.Lock()
	queue := s.queue
	enabled := s.cfg.Enabled
	s.mu.Unlock()
	if !enabled || queue == nil {
		return
	}
	select {
	case queue <- Notification{Message: msg, Key: key}:
	default:
		s.mu.Lock()
		s.dropped++
		n := s.dropped
		s.mu.Unlock()
		s.log.Warn("notification dropped, queue full", logx.Uint64("dropped_total", n))
	}
}

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case n := <-queue:
			if s.suppressed(n) {
				continue
			}
			s.mu.Lock()
			lim := s.limiter
			cfg := s.cfg
			s.mu.Unlock()
			if err := lim.Wait(ctx); err != nil {
				return
			}
			s.deliver(ctx, cfg, n)
		}
	}
}

func (s *Service) suppressed(n Notification) bool {
	if n.Key == "" {
		return false
	}
	s.mu.Lock()
	window := s.cfg.DedupWindow
	s.mu.Unlock()
	if window <= 0 {
		return false
	}
	now := time.Now()
	s.dmu.Lock()
	defer s.dmu.Unlock()
	if until, ok := s.dedup[n.Key]; ok && now.Before(until) {
		return true
	}
	s.dedup[n.Key] = now.Add(window)
	// Opportunistic pruning keeps the map bounded.
	if len(s.dedup) > 1024 {
		for k, until := range s.dedup {
			if now.After(until) {
				delete(s.dedup, k)
			}
		}
	}
	return false
}

func (s *Service) deliver(ctx context.Context, cfg Config, n Notification) {
	for _, sink := range s.sinks {
		var err error
		delay := cfg.RetryBase
		for attempt := 0; attempt <= cfg.RetryMax; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
				delay *= 2
			}
			if err = sink.Send(ctx, n); err == nil {
				break
			}
		}
		if err != nil {
			s.log.Warn("notification delivery failed", logx.String("sink", sink.Name()), logx.Err(err))
		}
	}
}
