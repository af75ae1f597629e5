// Package journal records routing outcomes for later inspection.
//
// The Journal:
//   - Is optional; the Nop recorder is used when disabled
//   - Never blocks the caller: events go onto an unbounded work queue
//   - Batches events into the dispatch_events table with pgx.Batch
//   - Flushes on batch size or on the flush interval, whichever comes first
package journal
