package server

import (
	"time"

	"github.com/rickgao/mympd-webserver/internal/connection"
)

// Error messages returned to clients.
const (
	msgBlockedByACL       = "Request blocked by ACL"
	msgScriptingDisabled  = "Remote scripting is disabled"
	msgInvalidRequest     = "Invalid API request"
	msgInvalidScript      = "Invalid script API request"
	msgNoResponse         = "No response for request"
	msgPublishingDisabled = "Publishing of directories is disabled"
)

// Config holds transport settings.
type Config struct {
	ReplyTimeout         time.Duration // Max wait for a worker reply
	ACL                  string        // Checked for every request
	ScriptACL            string        // Checked again for /api/script
	RemoteScripting      bool
	MaxRequestSize       int64
	MaxScriptRequestSize int64
	Session              connection.SessionConfig
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReplyTimeout:         30 * time.Second,
		MaxRequestSize:       2048,
		MaxScriptRequestSize: 4096,
		Session:              connection.DefaultSessionConfig(),
	}
}
