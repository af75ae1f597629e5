package connection

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/mympd-webserver/internal/model"
)

// Session is the server side of a broadcast-subscribed websocket.
//
// Send only enqueues; a single write pump owns every write to the socket so
// the dispatcher never blocks on a slow peer.
type Session struct {
	cfg    SessionConfig
	logger *slog.Logger
	conn   *websocket.Conn

	send chan []byte
	done chan struct{}

	mu         sync.Mutex
	closed     bool
	lastPongAt time.Time
}

// NewSession wraps an upgraded websocket connection.
func NewSession(conn *websocket.Conn, cfg SessionConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SendBufferSize < 1 {
		cfg.SendBufferSize = DefaultSessionConfig().SendBufferSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultSessionConfig().WriteTimeout
	}

	return &Session{
		cfg:        cfg,
		logger:     logger,
		conn:       conn,
		send:       make(chan []byte, cfg.SendBufferSize),
		done:       make(chan struct{}),
		lastPongAt: time.Now(),
	}
}

// Send queues res as a text frame. It never blocks.
func (s *Session) Send(res *model.WorkResult) error {
	select {
	case <-s.done:
		return ErrAlreadyClosed
	default:
	}

	select {
	case s.send <- res.Data:
		return nil
	case <-s.done:
		return ErrAlreadyClosed
	default:
		return ErrSendBufferFull
	}
}

// Run starts the write pump and reads until the peer goes away or Close is called.
// Inbound frames are discarded; subscribers talk to the API over HTTP.
func (s *Session) Run() error {
	go s.writePump()
	defer s.Close()

	if s.cfg.ReadLimit > 0 {
		s.conn.SetReadLimit(s.cfg.ReadLimit)
	}
	if s.cfg.PongTimeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	}
	s.conn.SetPongHandler(func(string) error {
		s.mu.Lock()
		s.lastPongAt = time.Now()
		s.mu.Unlock()
		if s.cfg.PongTimeout > 0 {
			return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		}
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
	}
}

// Close stops the write pump and closes the socket.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	return nil
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// LastPongAt returns when the peer last answered a ping.
func (s *Session) LastPongAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPongAt
}

// writePump is the only goroutine writing to the socket.
func (s *Session) writePump() {
	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = DefaultSessionConfig().PingInterval
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			s.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			return

		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				s.Close()
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
				s.Close()
				return
			}
		}
	}
}
