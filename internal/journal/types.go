package journal

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a journal event.
type Kind string

const (
	KindRouted     Kind = "routed"     // Request accepted onto a queue
	KindRejected   Kind = "rejected"   // Request failed validation
	KindDelivered  Kind = "delivered"  // Direct response written to its connection
	KindBroadcast  Kind = "broadcast"  // Notification sent to subscribers
	KindSuppressed Kind = "suppressed" // Duplicate notification inside the window
	KindDropped    Kind = "dropped"    // Response with no live recipient
	KindConfig     Kind = "config"     // Internal configuration update
	KindExpired    Kind = "expired"    // Messages evicted by the sweeper
)

// Event is one routing outcome.
type Event struct {
	ID          uuid.UUID
	OccurredAt  time.Time
	Kind        Kind
	ConnID      int64
	Method      string
	Destination string
	Detail      string
}

// Recorder accepts events. Implementations must not block.
type Recorder interface {
	Record(e Event)
}

// Nop discards every event.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(Event) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// WriterConfig holds configuration for the journal Writer.
type WriterConfig struct {
	InstanceID    string
	BatchSize     int           // Default: 500
	FlushInterval time.Duration // Default: 2s
}

// DefaultWriterConfig returns default configuration.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 2 * time.Second,
	}
}

// WriterMetrics tracks writer performance.
type WriterMetrics struct {
	Recorded int64
	Inserts  int64
	Flushes  int64
	Errors   int64
}

// Schema creates the journal table.
const Schema = `
CREATE TABLE IF NOT EXISTS dispatch_events (
	event_id    UUID PRIMARY KEY,
	instance_id TEXT NOT NULL,
	occurred_at BIGINT NOT NULL,
	kind        TEXT NOT NULL,
	conn_id     BIGINT NOT NULL,
	method      TEXT NOT NULL DEFAULT '',
	destination TEXT NOT NULL DEFAULT '',
	detail      TEXT NOT NULL DEFAULT ''
)`

// eventRow is the database representation of an Event.
type eventRow struct {
	EventID     uuid.UUID
	InstanceID  string
	OccurredAt  int64 // Microseconds since epoch
	Kind        string
	ConnID      int64
	Method      string
	Destination string
	Detail      string
}
