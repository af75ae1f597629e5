package router

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/mympd-webserver/internal/journal"
	"github.com/rickgao/mympd-webserver/internal/model"
)

// Router validates inbound API requests and hands them to a destination queue.
// Acceptance returns no result; the reply arrives later through the dispatcher.
type Router interface {
	// Submit handles a request from the general API endpoint.
	Submit(connID int64, body []byte) error

	// SubmitScript handles a request from the remote scripting endpoint.
	SubmitScript(connID int64, body []byte) error

	// Stats returns current router statistics.
	Stats() RouterStats
}

// router is the internal implementation.
type router struct {
	cfg      RouterConfig
	queues   Queues
	recorder journal.Recorder
	logger   *slog.Logger

	mu    sync.Mutex
	stats RouterStats
}

// NewRouter creates a new Command Router.
func NewRouter(cfg RouterConfig, queues Queues, recorder journal.Recorder, logger *slog.Logger) Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &router{
		cfg:      cfg,
		queues:   queues,
		recorder: journal.OrNop(recorder),
		logger:   logger,
	}
}

// Submit validates body and routes it by method prefix.
func (r *router) Submit(connID int64, body []byte) error {
	r.count(func(s *RouterStats) { s.Received++ })

	if len(body) > r.cfg.MaxRequestSize {
		return r.reject(connID, "", fmt.Errorf("%w: %d bytes", ErrRequestTooLarge, len(body)))
	}

	r.logger.Debug("api request", "conn_id", connID, "body", string(body))

	req, err := parseRequest(connID, body)
	if err != nil {
		return r.reject(connID, "", err)
	}
	if !IsPublic(CmdID(req.CmdID)) {
		return r.reject(connID, req.Method, fmt.Errorf("%w: %s", ErrPrivateMethod, req.Method))
	}

	return r.enqueue(req, DestinationFor(req.Method))
}

// SubmitScript validates body for the scripting endpoint, which accepts a single method.
func (r *router) SubmitScript(connID int64, body []byte) error {
	r.count(func(s *RouterStats) { s.Received++ })

	if len(body) > r.cfg.MaxScriptRequestSize {
		return r.reject(connID, "", fmt.Errorf("%w: %d bytes", ErrRequestTooLarge, len(body)))
	}

	r.logger.Debug("script api request", "conn_id", connID, "body", string(body))

	req, err := parseRequest(connID, body)
	if err != nil {
		return r.reject(connID, "", err)
	}
	if CmdID(req.CmdID) != CmdMympdScriptPostExecute {
		return r.reject(connID, req.Method, fmt.Errorf("%w: %s", ErrInvalidScriptMethod, req.Method))
	}

	return r.enqueue(req, DestAPI)
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// parseRequest extracts the envelope fields and resolves the method id.
func parseRequest(connID int64, body []byte) (*model.WorkRequest, error) {
	var env model.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if env.JSONRPC == nil || env.Method == nil || env.ID == nil {
		return nil, fmt.Errorf("%w: jsonrpc, method and id are required", ErrMalformedRequest)
	}
	if *env.JSONRPC != model.JSONRPCVersion {
		return nil, fmt.Errorf("%w: unsupported jsonrpc version %q", ErrMalformedRequest, *env.JSONRPC)
	}

	cmdID := LookupCmd(*env.Method)
	if cmdID == CmdUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, *env.Method)
	}

	data := make([]byte, len(body))
	copy(data, body)

	return &model.WorkRequest{
		ConnID: connID,
		ID:     *env.ID,
		CmdID:  int(cmdID),
		Method: *env.Method,
		Data:   data,
	}, nil
}

// enqueue pushes req with the connection id as correlation id.
func (r *router) enqueue(req *model.WorkRequest, dest Destination) error {
	if err := r.queues.For(dest).Push(req, req.ConnID); err != nil {
		return r.reject(req.ConnID, req.Method, fmt.Errorf("enqueue %s request: %w", dest, err))
	}

	r.count(func(s *RouterStats) {
		switch dest {
		case DestAPI:
			s.RoutedAPI++
		case DestWorker:
			s.RoutedWorker++
		default:
			s.RoutedClient++
		}
	})

	r.logger.Debug("routed api request",
		"conn_id", req.ConnID,
		"method", req.Method,
		"id", req.ID,
		"queue", dest,
	)
	r.recorder.Record(journal.Event{
		Kind:        journal.KindRouted,
		ConnID:      req.ConnID,
		Method:      req.Method,
		Destination: string(dest),
	})
	return nil
}

func (r *router) reject(connID int64, method string, err error) error {
	r.count(func(s *RouterStats) { s.Rejected++ })
	r.logger.Warn("invalid api request", "conn_id", connID, "method", method, "error", err)
	r.recorder.Record(journal.Event{
		Kind:   journal.KindRejected,
		ConnID: connID,
		Method: method,
		Detail: err.Error(),
	})
	return err
}

func (r *router) count(update func(*RouterStats)) {
	r.mu.Lock()
	update(&r.stats)
	r.mu.Unlock()
}
