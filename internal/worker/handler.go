package worker

import (
	"context"
	"sync"

	"github.com/rickgao/mympd-webserver/internal/model"
)

// Handler processes one request. A nil result means no reply is sent.
type Handler interface {
	Handle(ctx context.Context, req *model.WorkRequest) *model.WorkResult
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(context.Context, *model.WorkRequest) *model.WorkResult

func (f HandlerFunc) Handle(ctx context.Context, req *model.WorkRequest) *model.WorkResult {
	return f(ctx, req)
}

// Mux dispatches requests by method name.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{handlers: make(map[string]Handler)}
}

// Register installs h for method, replacing any previous handler.
func (m *Mux) Register(method string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[method] = h
}

// RegisterFunc installs f for method.
func (m *Mux) RegisterFunc(method string, f func(context.Context, *model.WorkRequest) *model.WorkResult) {
	m.Register(method, HandlerFunc(f))
}

// Handle implements Handler. Unregistered methods get an error reply.
func (m *Mux) Handle(ctx context.Context, req *model.WorkRequest) *model.WorkResult {
	m.mu.RLock()
	h, ok := m.handlers[req.Method]
	m.mu.RUnlock()

	if !ok {
		return ErrorResult(req, "Method not implemented")
	}
	return h.Handle(ctx, req)
}

// ErrorResult builds a JSON-RPC error reply for req.
func ErrorResult(req *model.WorkRequest, message string) *model.WorkResult {
	res := model.ResultFor(req)
	res.Data = model.NewMessage(req.Method, req.ID, message, true)
	return res
}

// Ping answers MYMPD_API_PING with "pong".
func Ping(_ context.Context, req *model.WorkRequest) *model.WorkResult {
	res := model.ResultFor(req)
	res.Data = model.NewMessage(req.Method, req.ID, "pong", false)
	return res
}
