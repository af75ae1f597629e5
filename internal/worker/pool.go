package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/mympd-webserver/internal/model"
	"github.com/rickgao/mympd-webserver/internal/queue"
)

// ErrStarted is returned by Assign after Start.
var ErrStarted = errors.New("worker pool already started")

// Stats counts work per assigned queue.
type Stats struct {
	Workers   int
	Handled   int64
	Replies   int64
	Panics    int64
	PushFails int64
}

type assignment struct {
	name    string
	queue   *queue.Queue[model.WorkRequest]
	handler Handler
	workers int
}

// Pool runs the workers for every assigned queue.
type Pool struct {
	responses *queue.Queue[model.WorkResult]
	logger    *slog.Logger

	assignments []assignment

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	mu    sync.Mutex
	stats map[string]*Stats
}

// NewPool creates a pool that replies onto responses.
func NewPool(responses *queue.Queue[model.WorkResult], logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		responses: responses,
		logger:    logger,
		stats:     make(map[string]*Stats),
	}
}

// Assign attaches n workers running h to q. Must be called before Start.
func (p *Pool) Assign(name string, q *queue.Queue[model.WorkRequest], h Handler, n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrStarted
	}
	if n < 1 {
		return fmt.Errorf("assign %s: worker count must be positive, got %d", name, n)
	}
	if _, ok := p.stats[name]; ok {
		return fmt.Errorf("assign %s: already assigned", name)
	}

	p.assignments = append(p.assignments, assignment{name: name, queue: q, handler: h, workers: n})
	p.stats[name] = &Stats{Workers: n}
	return nil
}

// Start launches every assigned worker.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	p.ctx, p.cancel = context.WithCancel(ctx)

	total := 0
	for _, a := range p.assignments {
		for i := 0; i < a.workers; i++ {
			p.wg.Add(1)
			go p.run(a, i)
		}
		total += a.workers
	}

	p.logger.Info("worker pool started",
		"queues", len(p.assignments),
		"workers", total,
	)
	return nil
}

// Stop cancels the workers and waits for in-flight requests to finish.
func (p *Pool) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool stop timed out")
		return ctx.Err()
	}
}

// Publish pushes a message that did not originate from a request, such as a
// broadcast notification (model.ConnBroadcast) or a settings update
// (model.ConnInternal).
func (p *Pool) Publish(connID int64, method string, data []byte) error {
	res := &model.WorkResult{ConnID: connID, Method: method, Data: data}
	if err := p.responses.Push(res, connID); err != nil {
		return fmt.Errorf("publish %s: %w", method, err)
	}
	return nil
}

// Stats returns per-queue statistics.
func (p *Pool) Stats() map[string]Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]Stats, len(p.stats))
	for name, s := range p.stats {
		out[name] = *s
	}
	return out
}

// run pops and handles requests until the pool stops or the queue is closed and drained.
func (p *Pool) run(a assignment, index int) {
	defer p.wg.Done()

	logger := p.logger.With("queue", a.name, "worker", index)
	logger.Debug("worker started")

	for {
		msg, ok := a.queue.PopContext(p.ctx, 0)
		if !ok {
			logger.Debug("worker exiting")
			return
		}

		res := p.handle(logger, a, msg.Payload)
		if res == nil {
			continue
		}

		if err := p.responses.Push(res, res.ConnID); err != nil {
			logger.Warn("failed to push response", "conn_id", res.ConnID, "method", res.Method, "error", err)
			p.count(a.name, func(s *Stats) { s.PushFails++ })
			continue
		}
		p.count(a.name, func(s *Stats) { s.Replies++ })
	}
}

// handle runs the handler, turning a panic into an error reply.
func (p *Pool) handle(logger *slog.Logger, a assignment, req *model.WorkRequest) (res *model.WorkResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panic", "method", req.Method, "conn_id", req.ConnID, "panic", r)
			p.count(a.name, func(s *Stats) { s.Panics++ })
			res = ErrorResult(req, "Internal error")
		}
	}()

	res = a.handler.Handle(p.ctx, req)
	p.count(a.name, func(s *Stats) { s.Handled++ })
	return res
}

func (p *Pool) count(name string, update func(*Stats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.stats[name]; ok {
		update(s)
	}
}
