package model

// Correlation id classes carried on every queued message.
const (
	// ConnInternal marks a configuration update for the web server itself.
	ConnInternal int64 = -1

	// ConnBroadcast marks a notification for every websocket subscriber.
	ConnBroadcast int64 = 0
)

// IsDirect reports whether connID addresses a single connection.
func IsDirect(connID int64) bool {
	return connID > 0
}

// WorkRequest is a validated API request handed to a worker.
type WorkRequest struct {
	ConnID int64  // Identity of the submitting connection
	ID     int64  // JSON-RPC id from the request body
	CmdID  int    // Enumerated method id (never 0)
	Method string // Method name, e.g. "MYMPD_API_PING"
	Data   []byte // Full request body
}

// WorkResult is a worker response travelling back to the web server.
type WorkResult struct {
	ConnID int64  // Correlation id (see ConnInternal, ConnBroadcast)
	ID     int64  // JSON-RPC id echoed back
	CmdID  int    // Method id of the originating request (0 for notifications)
	Method string // Method name of the originating request
	Data   []byte // JSON body sent to the client

	// Binary replaces Data as the HTTP body when set (e.g. album art).
	Binary      []byte
	ContentType string
}

// ResultFor builds an empty result addressed to the request's connection.
func ResultFor(req *WorkRequest) *WorkResult {
	return &WorkResult{
		ConnID: req.ConnID,
		ID:     req.ID,
		CmdID:  req.CmdID,
		Method: req.Method,
	}
}
