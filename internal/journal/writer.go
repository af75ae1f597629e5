package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/mympd-webserver/internal/queue"
)

// BatchSender is the subset of *pgxpool.Pool used for inserts.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Execer is the subset of *pgxpool.Pool used for schema setup.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the journal table if it does not exist.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create dispatch_events: %w", err)
	}
	return nil
}

// Writer consumes recorded events and writes them to the dispatch_events table.
type Writer struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from recorders
	input *queue.Queue[Event]

	// Database
	db BatchSender

	// Batching
	batch       []eventRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics
}

// NewWriter creates a new journal Writer.
func NewWriter(cfg WriterConfig, db BatchSender, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultWriterConfig().BatchSize
	}
	return &Writer{
		cfg:    cfg,
		logger: logger,
		input:  queue.New[Event](),
		db:     db,
		batch:  make([]eventRow, 0, cfg.BatchSize),
	}
}

// Record implements Recorder. It never blocks.
func (w *Writer) Record(e Event) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	if err := w.input.Push(&e, e.ConnID); err != nil {
		return // Closed during shutdown
	}
	w.batchMu.Lock()
	w.metrics.Recorded++
	w.batchMu.Unlock()
}

// Start begins consuming events and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer, draining queued events.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	w.input.Close()
	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("journal writer stopped")
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	// Leftovers still in the queue go into the final flush.
	for {
		msg, ok := w.input.Pop(0, 0)
		if !ok {
			break
		}
		w.append(*msg.Payload)
	}
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop moves events from the input queue into the batch.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		msg, ok := w.input.PopContext(w.ctx, 0)
		if !ok {
			return
		}
		if w.append(*msg.Payload) {
			w.flush(w.ctx)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// append adds an event to the batch and reports whether the batch is full.
func (w *Writer) append(e Event) bool {
	row := w.transform(e)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

// transform converts an Event to an eventRow.
func (w *Writer) transform(e Event) eventRow {
	return eventRow{
		EventID:     e.ID,
		InstanceID:  w.cfg.InstanceID,
		OccurredAt:  e.OccurredAt.UnixMicro(),
		Kind:        string(e.Kind),
		ConnID:      e.ConnID,
		Method:      e.Method,
		Destination: e.Destination,
		Detail:      e.Detail,
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]eventRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	if w.db == nil {
		w.logger.Debug("journal has no database, discarding batch", "count", len(batch))
		return
	}

	start := time.Now()

	if err := w.batchInsert(ctx, batch); err != nil {
		w.logger.Error("journal batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed journal events",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []eventRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO dispatch_events (event_id, instance_id, occurred_at, kind, conn_id, method, destination, detail)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (event_id) DO NOTHING
		`, r.EventID, r.InstanceID, r.OccurredAt, r.Kind, r.ConnID, r.Method, r.Destination, r.Detail)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}
