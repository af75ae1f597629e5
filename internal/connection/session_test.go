package connection

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/mympd-webserver/internal/model"
)

// sessionServer upgrades every request and hands the session to onSession.
func sessionServer(t *testing.T, cfg SessionConfig, onSession func(*Session)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		s := NewSession(conn, cfg, nil)
		onSession(s)
		s.Run()
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSession_Send(t *testing.T) {
	server := sessionServer(t, DefaultSessionConfig(), func(s *Session) {
		s.Send(&model.WorkResult{Data: []byte(`{"jsonrpc":"2.0","method":"welcome"}`)})
	})
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if msgType != websocket.TextMessage {
		t.Errorf("message type = %d, want %d", msgType, websocket.TextMessage)
	}
	if string(data) != `{"jsonrpc":"2.0","method":"welcome"}` {
		t.Errorf("data = %s", data)
	}
}

func TestSession_RunEndsOnPeerClose(t *testing.T) {
	ended := make(chan *Session, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s := NewSession(conn, DefaultSessionConfig(), nil)
		s.Run()
		ended <- s
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	conn.WriteMessage(websocket.TextMessage, []byte("ignored"))
	conn.Close()

	select {
	case s := <-ended:
		select {
		case <-s.Done():
		default:
			t.Error("Done() not closed after Run returned")
		}
		if s.LastPongAt().IsZero() {
			t.Error("LastPongAt() is zero")
		}
		if err := s.Send(&model.WorkResult{Data: []byte("late")}); !errors.Is(err, ErrAlreadyClosed) {
			t.Errorf("Send after close error = %v, want %v", err, ErrAlreadyClosed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after peer closed")
	}
}

func TestSession_SendBufferFull(t *testing.T) {
	// No write pump is running, so the buffer is never drained.
	s := NewSession(nil, SessionConfig{SendBufferSize: 1}, nil)

	if err := s.Send(&model.WorkResult{Data: []byte("a")}); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	if err := s.Send(&model.WorkResult{Data: []byte("b")}); !errors.Is(err, ErrSendBufferFull) {
		t.Errorf("second Send() error = %v, want %v", err, ErrSendBufferFull)
	}

	s.Close()
	if err := s.Send(&model.WorkResult{Data: []byte("c")}); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("Send after Close error = %v, want %v", err, ErrAlreadyClosed)
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done() should be closed")
	}
}

func TestSession_PongUpdatesLastPongAt(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.PingInterval = 20 * time.Millisecond

	sessions := make(chan *Session, 1)
	server := sessionServer(t, cfg, func(s *Session) { sessions <- s })
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// The default client ping handler answers while a read is in progress.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s := <-sessions
	opened := s.LastPongAt()
	time.Sleep(200 * time.Millisecond)

	if !s.LastPongAt().After(opened) {
		t.Errorf("LastPongAt() = %v, want after %v", s.LastPongAt(), opened)
	}
}
