package router

import (
	"errors"

	"github.com/rickgao/mympd-webserver/internal/model"
	"github.com/rickgao/mympd-webserver/internal/queue"
)

// Errors returned by Submit and SubmitScript. All are validation failures.
var (
	ErrRequestTooLarge     = errors.New("request exceeds max request size")
	ErrMalformedRequest    = errors.New("malformed jsonrpc request")
	ErrUnknownMethod       = errors.New("unknown api method")
	ErrPrivateMethod       = errors.New("api method is private")
	ErrInvalidScriptMethod = errors.New("api method is invalid for the script endpoint")
)

// RouterConfig holds configuration for the Command Router.
type RouterConfig struct {
	MaxRequestSize       int // Default: 2048 bytes
	MaxScriptRequestSize int // Default: 4096 bytes
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		MaxRequestSize:       2048,
		MaxScriptRequestSize: 4096,
	}
}

// RequestQueue carries validated requests to a worker pool.
type RequestQueue = queue.Queue[model.WorkRequest]

// Queues are the destination request queues, constructed once at startup.
type Queues struct {
	API    *RequestQueue
	Worker *RequestQueue
	Client *RequestQueue
}

// NewQueues creates the three destination queues.
func NewQueues(opts ...queue.Option) Queues {
	return Queues{
		API:    queue.New[model.WorkRequest](opts...),
		Worker: queue.New[model.WorkRequest](opts...),
		Client: queue.New[model.WorkRequest](opts...),
	}
}

// For returns the queue for a destination.
func (q Queues) For(d Destination) *RequestQueue {
	switch d {
	case DestAPI:
		return q.API
	case DestWorker:
		return q.Worker
	default:
		return q.Client
	}
}

// Close closes all three queues.
func (q Queues) Close() {
	q.API.Close()
	q.Worker.Close()
	q.Client.Close()
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	Received     int64
	Rejected     int64
	RoutedAPI    int64
	RoutedWorker int64
	RoutedClient int64
}
