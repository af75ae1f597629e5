package connection

import (
	"errors"
	"math"
	"time"

	"github.com/rickgao/mympd-webserver/internal/model"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrAlreadyDelivered = errors.New("reply already delivered")
	ErrIdentitiesInUse  = errors.New("all connection identities in use")
)

// Kind distinguishes plain request/response connections from subscribers.
type Kind string

const (
	KindHTTP      Kind = "http"      // Waits for the reply to its own request
	KindWebSocket Kind = "websocket" // Receives broadcast notifications
)

// Sender writes one result to a connection. Implementations must not block
// the caller on a slow peer.
type Sender interface {
	Send(res *model.WorkResult) error
}

// Conn is an open connection.
type Conn struct {
	ID       int64
	Kind     Kind
	OpenedAt time.Time

	sender Sender
}

// Send delivers res on this connection.
func (c *Conn) Send(res *model.WorkResult) error {
	return c.sender.Send(res)
}

// Subscribed reports whether the connection receives broadcasts.
func (c *Conn) Subscribed() bool {
	return c.Kind == KindWebSocket
}

// RegistryConfig configures the Connection Registry.
type RegistryConfig struct {
	MaxID int64 // Largest identity before wrapping to 1. Default: math.MaxInt32
}

// DefaultRegistryConfig returns default configuration.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaxID: math.MaxInt32,
	}
}

// RegistryStats provides statistics about the registry.
type RegistryStats struct {
	Open       int
	Subscribed int
	Opened     int64
	Closed     int64
	Wraps      int64
}

// SessionConfig configures a websocket Session.
type SessionConfig struct {
	WriteTimeout   time.Duration // Write deadline for sends
	PingInterval   time.Duration // Keepalive ping period
	PongTimeout    time.Duration // Max time without a pong before the session is dropped
	SendBufferSize int           // Outbound frames buffered per session
	ReadLimit      int64         // Max inbound frame size
}

// DefaultSessionConfig returns sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		WriteTimeout:   5 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    60 * time.Second,
		SendBufferSize: 256,
		ReadLimit:      4096,
	}
}
