package dispatcher

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/mympd-webserver/internal/journal"
	"github.com/rickgao/mympd-webserver/internal/model"
	"github.com/rickgao/mympd-webserver/internal/queue"
)

// ResponseQueue is the single queue all workers push results onto.
type ResponseQueue = queue.Queue[model.WorkResult]

// Dispatcher routes completed work back to connections.
type Dispatcher interface {
	// PollOnce runs one poll cycle and reports whether a message was routed.
	PollOnce() bool

	// Start begins the poll loop.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the poll loop.
	Stop(ctx context.Context) error

	// Stats returns current dispatcher statistics.
	Stats() Stats
}

// dispatcher is the internal implementation.
type dispatcher struct {
	cfg       Config
	responses *ResponseQueue
	conns     Connections
	config    ConfigHandler
	recorder  journal.Recorder
	logger    *slog.Logger
	now       func() time.Time

	// De-dup cache, touched only by the polling goroutine
	hasNotify    bool
	lastNotify   []byte
	lastNotifyAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// NewDispatcher creates a new Response Dispatcher. config may be nil, in which
// case internal configuration messages are logged and discarded.
func NewDispatcher(
	cfg Config,
	responses *ResponseQueue,
	conns Connections,
	config ConfigHandler,
	recorder journal.Recorder,
	logger *slog.Logger,
) Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultConfig().PollTimeout
	}

	return &dispatcher{
		cfg:       cfg,
		responses: responses,
		conns:     conns,
		config:    config,
		recorder:  journal.OrNop(recorder),
		logger:    logger,
		now:       time.Now,
	}
}

// PollOnce checks the response queue with a bounded wait and routes at most one message.
func (d *dispatcher) PollOnce() bool {
	n := d.responses.Length(d.cfg.PollTimeout)
	if n == queue.LengthTimeout {
		d.count(func(s *Stats) { s.LockTimeouts++ })
		return false
	}
	if n == 0 {
		return false
	}

	msg, ok := d.responses.Pop(d.cfg.PollTimeout, 0)
	if !ok {
		return false
	}
	d.count(func(s *Stats) { s.Polled++ })

	d.route(msg.ID, msg.Payload)
	return true
}

// Start begins the poll loop.
func (d *dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go d.run()

	d.logger.Info("response dispatcher started",
		"poll_timeout", d.cfg.PollTimeout,
		"notify_window", d.cfg.NotifyWindow,
	)
	return nil
}

// Stop gracefully shuts down the poll loop.
func (d *dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("response dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("response dispatcher stop timed out")
		return ctx.Err()
	}
}

// Stats returns current statistics.
func (d *dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// run polls until stopped. An idle cycle parks on the queue for one poll timeout.
func (d *dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		if d.PollOnce() {
			continue
		}

		idle, cancel := context.WithTimeout(d.ctx, d.cfg.PollTimeout)
		d.responses.Wait(idle)
		cancel()
	}
}

// route classifies a message by correlation id.
func (d *dispatcher) route(id int64, res *model.WorkResult) {
	switch {
	case id == model.ConnInternal:
		d.applyConfig(res)
	case id == model.ConnBroadcast:
		d.broadcast(res)
	case model.IsDirect(id):
		d.deliver(id, res)
	default:
		d.logger.Warn("response with invalid correlation id", "conn_id", id, "method", res.Method)
		d.count(func(s *Stats) { s.Dropped++ })
	}
}

// applyConfig hands an internal update to the config handler. Malformed updates
// are not retried; the producer resends on its next state change.
func (d *dispatcher) applyConfig(res *model.WorkResult) {
	if d.config == nil {
		d.logger.Warn("internal config message without handler, discarding")
		d.count(func(s *Stats) { s.ConfigErrors++ })
		return
	}

	if err := d.config.ApplyConfig(res.Data); err != nil {
		d.logger.Error("invalid internal config message", "error", err)
		d.count(func(s *Stats) { s.ConfigErrors++ })
		d.recorder.Record(journal.Event{
			Kind:   journal.KindConfig,
			ConnID: model.ConnInternal,
			Detail: err.Error(),
		})
		return
	}

	d.count(func(s *Stats) { s.ConfigApplied++ })
	d.recorder.Record(journal.Event{
		Kind:   journal.KindConfig,
		ConnID: model.ConnInternal,
		Detail: "applied",
	})
}

// broadcast sends a notification to every subscriber unless it repeats the
// previous one inside the window.
func (d *dispatcher) broadcast(res *model.WorkResult) {
	now := d.now()
	if d.hasNotify &&
		bytes.Equal(res.Data, d.lastNotify) &&
		now.Sub(d.lastNotifyAt) < d.cfg.NotifyWindow {
		d.logger.Debug("suppressing duplicate notification", "method", res.Method)
		d.count(func(s *Stats) { s.Suppressed++ })
		d.recorder.Record(journal.Event{
			Kind:   journal.KindSuppressed,
			ConnID: model.ConnBroadcast,
			Method: res.Method,
		})
		return
	}

	d.hasNotify = true
	d.lastNotify = append(d.lastNotify[:0], res.Data...)
	d.lastNotifyAt = now

	conns := d.conns.Broadcast()
	if len(conns) == 0 {
		d.logger.Debug("no subscribers for notification", "method", res.Method)
		d.count(func(s *Stats) { s.NoSubscribers++ })
		return
	}

	var sent, failed int64
	for _, c := range conns {
		if err := c.Send(res); err != nil {
			d.logger.Debug("notification not sent", "conn_id", c.ID, "error", err)
			failed++
			continue
		}
		sent++
	}

	d.count(func(s *Stats) {
		s.Broadcasts++
		s.BroadcastSends += sent
		s.SendErrors += failed
	})
	d.recorder.Record(journal.Event{
		Kind:   journal.KindBroadcast,
		ConnID: model.ConnBroadcast,
		Method: res.Method,
		Detail: fmt.Sprintf("%d of %d subscribers", sent, len(conns)),
	})
}

// deliver writes a direct response to the connection holding id, if any.
func (d *dispatcher) deliver(id int64, res *model.WorkResult) {
	conn, ok := d.conns.Lookup(id)
	if !ok {
		d.logger.Debug("connection closed before response", "conn_id", id, "method", res.Method)
		d.count(func(s *Stats) { s.Dropped++ })
		d.recorder.Record(journal.Event{
			Kind:   journal.KindDropped,
			ConnID: id,
			Method: res.Method,
		})
		return
	}

	if err := conn.Send(res); err != nil {
		d.logger.Debug("response not sent", "conn_id", id, "method", res.Method, "error", err)
		d.count(func(s *Stats) { s.SendErrors++ })
		d.recorder.Record(journal.Event{
			Kind:   journal.KindDropped,
			ConnID: id,
			Method: res.Method,
			Detail: err.Error(),
		})
		return
	}

	d.count(func(s *Stats) { s.Direct++ })
	d.recorder.Record(journal.Event{
		Kind:   journal.KindDelivered,
		ConnID: id,
		Method: res.Method,
	})
}

func (d *dispatcher) count(update func(*Stats)) {
	d.mu.Lock()
	update(&d.stats)
	d.mu.Unlock()
}
