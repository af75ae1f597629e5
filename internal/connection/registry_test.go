package connection

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/mympd-webserver/internal/model"
)

type recordingSender struct {
	mu   sync.Mutex
	sent [][]byte
}

func (s *recordingSender) Send(res *model.WorkResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, res.Data)
	return nil
}

func TestDefaultRegistryConfig(t *testing.T) {
	cfg := DefaultRegistryConfig()
	if cfg.MaxID != math.MaxInt32 {
		t.Errorf("MaxID = %d, want %d", cfg.MaxID, math.MaxInt32)
	}
}

func TestRegistry_OpenAssignsMonotonicIDs(t *testing.T) {
	r := NewRegistry(DefaultRegistryConfig(), nil)

	for want := int64(1); want <= 5; want++ {
		conn, err := r.Open(KindHTTP, &recordingSender{})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if conn.ID != want {
			t.Errorf("ID = %d, want %d", conn.ID, want)
		}
	}

	// Closing does not make the counter go back.
	r.Close(2)
	conn, _ := r.Open(KindHTTP, &recordingSender{})
	if conn.ID != 6 {
		t.Errorf("ID after close = %d, want 6", conn.ID)
	}
}

func TestRegistry_WrapsToOne(t *testing.T) {
	r := NewRegistry(RegistryConfig{MaxID: math.MaxInt64}, nil)
	r.lastID = math.MaxInt64 - 1

	first, err := r.Open(KindHTTP, &recordingSender{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if first.ID != math.MaxInt64 {
		t.Errorf("ID = %d, want %d", first.ID, int64(math.MaxInt64))
	}

	second, err := r.Open(KindHTTP, &recordingSender{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if second.ID != 1 {
		t.Errorf("ID after max = %d, want 1", second.ID)
	}
	if r.Stats().Wraps != 1 {
		t.Errorf("Wraps = %d, want 1", r.Stats().Wraps)
	}
}

func TestRegistry_WrapSkipsOpenIDs(t *testing.T) {
	r := NewRegistry(RegistryConfig{MaxID: 3}, nil)

	for i := 0; i < 3; i++ {
		if _, err := r.Open(KindWebSocket, &recordingSender{}); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
	}

	if _, err := r.Open(KindHTTP, &recordingSender{}); !errors.Is(err, ErrIdentitiesInUse) {
		t.Errorf("Open() error = %v, want %v", err, ErrIdentitiesInUse)
	}

	r.Close(2)
	conn, err := r.Open(KindHTTP, &recordingSender{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if conn.ID != 2 {
		t.Errorf("ID = %d, want 2 (1 and 3 still open)", conn.ID)
	}
}

func TestRegistry_LookupAndClose(t *testing.T) {
	r := NewRegistry(DefaultRegistryConfig(), nil)
	conn, _ := r.Open(KindHTTP, &recordingSender{})

	got, ok := r.Lookup(conn.ID)
	if !ok || got != conn {
		t.Fatalf("Lookup(%d) = %v, %v", conn.ID, got, ok)
	}

	if !r.Close(conn.ID) {
		t.Error("Close() = false, want true")
	}
	if r.Close(conn.ID) {
		t.Error("second Close() = true, want false")
	}
	if _, ok := r.Lookup(conn.ID); ok {
		t.Error("Lookup after Close should fail")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistry_Broadcast(t *testing.T) {
	r := NewRegistry(DefaultRegistryConfig(), nil)

	r.Open(KindWebSocket, &recordingSender{}) // 1
	r.Open(KindHTTP, &recordingSender{})      // 2
	r.Open(KindWebSocket, &recordingSender{}) // 3
	r.Open(KindWebSocket, &recordingSender{}) // 4
	r.Close(3)

	conns := r.Broadcast()
	if len(conns) != 2 {
		t.Fatalf("len(Broadcast()) = %d, want 2", len(conns))
	}
	if conns[0].ID != 1 || conns[1].ID != 4 {
		t.Errorf("Broadcast ids = [%d %d], want [1 4]", conns[0].ID, conns[1].ID)
	}

	stats := r.Stats()
	if stats.Open != 3 || stats.Subscribed != 2 {
		t.Errorf("Stats = %+v, want 3 open, 2 subscribed", stats)
	}
	if stats.Opened != 4 || stats.Closed != 1 {
		t.Errorf("Stats = %+v, want 4 opened, 1 closed", stats)
	}
}

func TestRegistry_SendThroughConn(t *testing.T) {
	r := NewRegistry(DefaultRegistryConfig(), nil)
	sender := &recordingSender{}
	conn, _ := r.Open(KindWebSocket, sender)

	if err := conn.Send(&model.WorkResult{Data: []byte("hello")}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(sender.sent) != 1 || string(sender.sent[0]) != "hello" {
		t.Errorf("sent = %q, want [hello]", sender.sent)
	}
}

func TestExchange(t *testing.T) {
	ex := NewExchange()

	if err := ex.Send(&model.WorkResult{ID: 1}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := ex.Send(&model.WorkResult{ID: 2}); !errors.Is(err, ErrAlreadyDelivered) {
		t.Errorf("second Send() error = %v, want %v", err, ErrAlreadyDelivered)
	}

	res, err := ex.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if res.ID != 1 {
		t.Errorf("ID = %d, want 1", res.ID)
	}
}

func TestExchange_WaitTimeout(t *testing.T) {
	ex := NewExchange()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := ex.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}
