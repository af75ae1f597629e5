package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rickgao/mympd-webserver/internal/model"
	"github.com/rickgao/mympd-webserver/internal/queue"
)

type rpcReply struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Result  map[string]any `json:"result"`
	Error   map[string]any `json:"error"`
}

func decodeReply(t *testing.T, data []byte) rpcReply {
	t.Helper()
	var r rpcReply
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("reply is not json: %v (%s)", err, data)
	}
	return r
}

func TestPing(t *testing.T) {
	req := &model.WorkRequest{ConnID: 4, ID: 7, CmdID: 1, Method: "MYMPD_API_PING"}
	res := Ping(context.Background(), req)

	if res.ConnID != 4 || res.ID != 7 || res.Method != "MYMPD_API_PING" {
		t.Errorf("result header = %+v", res)
	}
	r := decodeReply(t, res.Data)
	if r.JSONRPC != "2.0" || r.ID != 7 {
		t.Errorf("reply = %+v", r)
	}
	if r.Result["method"] != "MYMPD_API_PING" || r.Result["message"] != "pong" {
		t.Errorf("result = %v, want pong", r.Result)
	}
}

func TestMux(t *testing.T) {
	mux := NewMux()
	mux.RegisterFunc("MYMPD_API_PING", Ping)

	res := mux.Handle(context.Background(), &model.WorkRequest{ConnID: 1, ID: 2, Method: "MYMPD_API_PING"})
	if r := decodeReply(t, res.Data); r.Result["message"] != "pong" {
		t.Errorf("ping reply = %+v", r)
	}

	res = mux.Handle(context.Background(), &model.WorkRequest{ConnID: 1, ID: 3, Method: "MPD_API_QUEUE_LIST"})
	r := decodeReply(t, res.Data)
	if r.Error == nil || r.Error["message"] != "Method not implemented" {
		t.Errorf("unregistered reply = %+v", r)
	}
	if r.ID != 3 {
		t.Errorf("ID = %d, want 3", r.ID)
	}
}

func TestPool_Assign(t *testing.T) {
	p := NewPool(queue.New[model.WorkResult](), nil)
	q := queue.New[model.WorkRequest]()

	if err := p.Assign("api", q, HandlerFunc(Ping), 0); err == nil {
		t.Error("Assign with 0 workers should fail")
	}
	if err := p.Assign("api", q, HandlerFunc(Ping), 2); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if err := p.Assign("api", q, HandlerFunc(Ping), 1); err == nil {
		t.Error("duplicate Assign should fail")
	}

	p.Start(context.Background())
	defer p.Stop(context.Background())

	if err := p.Assign("late", q, HandlerFunc(Ping), 1); err != ErrStarted {
		t.Errorf("Assign after Start error = %v, want %v", err, ErrStarted)
	}
	if p.Stats()["api"].Workers != 2 {
		t.Errorf("Workers = %d, want 2", p.Stats()["api"].Workers)
	}
}

func TestPool_ProcessesAndReplies(t *testing.T) {
	responses := queue.New[model.WorkResult]()
	requests := queue.New[model.WorkRequest]()
	p := NewPool(responses, nil)

	mux := NewMux()
	mux.RegisterFunc("MYMPD_API_PING", Ping)
	p.Assign("api", requests, mux, 1)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	requests.Push(&model.WorkRequest{ConnID: 9, ID: 7, Method: "MYMPD_API_PING"}, 9)

	msg, ok := responses.Pop(time.Second, 9)
	if !ok {
		t.Fatal("no response for conn 9")
	}
	if msg.ID != 9 || msg.Payload.ID != 7 {
		t.Errorf("response correlation = %d, id = %d", msg.ID, msg.Payload.ID)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	stats := p.Stats()["api"]
	if stats.Handled != 1 || stats.Replies != 1 {
		t.Errorf("Stats = %+v, want 1 handled, 1 reply", stats)
	}
}

func TestPool_NilResultSendsNothing(t *testing.T) {
	responses := queue.New[model.WorkResult]()
	requests := queue.New[model.WorkRequest]()
	p := NewPool(responses, nil)
	p.Assign("client", requests, HandlerFunc(func(context.Context, *model.WorkRequest) *model.WorkResult {
		return nil
	}), 1)

	p.Start(context.Background())
	requests.Push(&model.WorkRequest{ConnID: 1, Method: "MPD_API_PLAYER_PLAY"}, 1)
	time.Sleep(50 * time.Millisecond)
	p.Stop(context.Background())

	if n := responses.Length(0); n != 0 {
		t.Errorf("responses = %d, want 0", n)
	}
	if p.Stats()["client"].Handled != 1 {
		t.Errorf("Handled = %d, want 1", p.Stats()["client"].Handled)
	}
}

func TestPool_RecoversPanic(t *testing.T) {
	responses := queue.New[model.WorkResult]()
	requests := queue.New[model.WorkRequest]()
	p := NewPool(responses, nil)
	p.Assign("worker", requests, HandlerFunc(func(context.Context, *model.WorkRequest) *model.WorkResult {
		panic("boom")
	}), 1)

	p.Start(context.Background())
	defer p.Stop(context.Background())

	requests.Push(&model.WorkRequest{ConnID: 3, ID: 1, Method: "MPDWORKER_API_PLAYLIST_SORT"}, 3)

	msg, ok := responses.Pop(time.Second, 3)
	if !ok {
		t.Fatal("expected error reply after panic")
	}
	if r := decodeReply(t, msg.Payload.Data); r.Error["message"] != "Internal error" {
		t.Errorf("reply = %+v", r)
	}
	if p.Stats()["worker"].Panics != 1 {
		t.Errorf("Panics = %d, want 1", p.Stats()["worker"].Panics)
	}
}

func TestPool_SerialPerWorker(t *testing.T) {
	responses := queue.New[model.WorkResult]()
	requests := queue.New[model.WorkRequest]()
	p := NewPool(responses, nil)

	active := make(chan struct{}, 1)
	p.Assign("api", requests, HandlerFunc(func(_ context.Context, req *model.WorkRequest) *model.WorkResult {
		select {
		case active <- struct{}{}:
		default:
			t.Error("two requests in flight on a single worker")
		}
		time.Sleep(5 * time.Millisecond)
		<-active
		return model.ResultFor(req)
	}), 1)

	p.Start(context.Background())
	defer p.Stop(context.Background())

	for i := int64(1); i <= 5; i++ {
		requests.Push(&model.WorkRequest{ConnID: i, Method: "MYMPD_API_PING"}, i)
	}
	for i := int64(1); i <= 5; i++ {
		msg, ok := responses.Pop(time.Second, 0)
		if !ok {
			t.Fatalf("missing response %d", i)
		}
		if msg.ID != i {
			t.Errorf("response %d has correlation id %d, want FIFO order", i, msg.ID)
		}
	}
}

func TestPool_Publish(t *testing.T) {
	responses := queue.New[model.WorkResult]()
	p := NewPool(responses, nil)

	if err := p.Publish(model.ConnBroadcast, "update_state", []byte(`{"method":"update_state"}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	msg, ok := responses.Pop(0, 0)
	if !ok || msg.ID != model.ConnBroadcast {
		t.Fatalf("Pop() = %+v, %v", msg, ok)
	}

	responses.Close()
	if err := p.Publish(model.ConnInternal, "settings", []byte("{}")); err == nil {
		t.Error("Publish on closed queue should fail")
	}
}
