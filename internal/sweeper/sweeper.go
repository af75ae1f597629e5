package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/mympd-webserver/internal/journal"
)

// Expirer is a queue that can evict stale messages.
type Expirer interface {
	Expire(maxAge time.Duration) int
}

// Config holds sweeper configuration.
type Config struct {
	Interval time.Duration // Sweep interval (default: 30s)
	MaxAge   time.Duration // Messages older than this are evicted (default: 60s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		MaxAge:   60 * time.Second,
	}
}

type target struct {
	name  string
	queue Expirer
}

// Sweeper periodically expires stale messages.
type Sweeper struct {
	cfg      Config
	recorder journal.Recorder
	logger   *slog.Logger

	mu      sync.Mutex
	targets []target
	expired map[string]int64
	sweeps  int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Sweeper.
func New(cfg Config, recorder journal.Recorder, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Sweeper{
		cfg:      cfg,
		recorder: journal.OrNop(recorder),
		logger:   logger,
		expired:  make(map[string]int64),
	}
}

// Add registers a queue under name.
func (s *Sweeper) Add(name string, q Expirer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, target{name: name, queue: q})
}

// Start begins the sweep loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("expiry sweeper started",
		"interval", s.cfg.Interval,
		"max_age", s.cfg.MaxAge,
	)
	return nil
}

// Stop gracefully shuts down the sweeper.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep expires every registered queue once and returns the total evicted.
func (s *Sweeper) Sweep() int {
	s.mu.Lock()
	targets := append([]target(nil), s.targets...)
	s.mu.Unlock()

	total := 0
	for _, t := range targets {
		n := t.queue.Expire(s.cfg.MaxAge)
		if n == 0 {
			continue
		}
		total += n

		s.logger.Warn("expired stale messages",
			"queue", t.name,
			"count", n,
			"max_age", s.cfg.MaxAge,
		)
		s.recorder.Record(journal.Event{
			Kind:        journal.KindExpired,
			Destination: t.name,
			Detail:      s.cfg.MaxAge.String(),
		})

		s.mu.Lock()
		s.expired[t.name] += int64(n)
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.sweeps++
	s.mu.Unlock()
	return total
}

// Expired returns the cumulative evictions per queue.
func (s *Sweeper) Expired() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int64, len(s.expired))
	for k, v := range s.expired {
		out[k] = v
	}
	return out
}

// Sweeps returns how many sweeps have completed.
func (s *Sweeper) Sweeps() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweeps
}

// run is the main sweep loop.
func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
