package dispatcher

import (
	"time"

	"github.com/rickgao/mympd-webserver/internal/connection"
)

// ConfigHandler applies internal configuration updates (correlation id -1).
type ConfigHandler interface {
	ApplyConfig(data []byte) error
}

// ConfigHandlerFunc is a function adapter for ConfigHandler.
type ConfigHandlerFunc func([]byte) error

func (f ConfigHandlerFunc) ApplyConfig(data []byte) error {
	return f(data)
}

// Connections is the view of the Connection Registry the dispatcher needs.
type Connections interface {
	Lookup(id int64) (*connection.Conn, bool)
	Broadcast() []*connection.Conn
}

// Config holds dispatcher configuration.
type Config struct {
	PollTimeout  time.Duration // Bound on each queue wait per cycle (default: 50ms)
	NotifyWindow time.Duration // Identical notifications inside this window are suppressed (default: 1s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollTimeout:  50 * time.Millisecond,
		NotifyWindow: time.Second,
	}
}

// Stats contains runtime statistics.
type Stats struct {
	Polled         int64 // Messages taken off the response queue
	LockTimeouts   int64 // Cycles skipped because the queue lock was busy
	Direct         int64 // Responses written to their connection
	Dropped        int64 // Responses whose connection had closed
	Broadcasts     int64 // Notifications fanned out
	BroadcastSends int64 // Individual subscriber writes
	Suppressed     int64 // Duplicate notifications inside the window
	NoSubscribers  int64 // Notifications discarded for lack of subscribers
	ConfigApplied  int64
	ConfigErrors   int64
	SendErrors     int64
}
