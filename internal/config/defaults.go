package config

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Default values for optional configuration fields.
const (
	DefaultHTTPHost             = "0.0.0.0"
	DefaultHTTPPort             = 80
	DefaultReplyTimeout         = 30 * time.Second
	DefaultReadHeaderTimeout    = 10 * time.Second
	DefaultShutdownTimeout      = 10 * time.Second
	DefaultVarLibDir            = "/var/lib/mympd"
	DefaultCoverImageName       = "folder,cover"
	DefaultMaxRequestSize       = 2048
	DefaultMaxScriptRequestSize = 4096
	DefaultPollTimeout          = 50 * time.Millisecond
	DefaultExpireInterval       = 30 * time.Second
	DefaultExpireMaxAge         = 60 * time.Second
	DefaultNotifyWindow         = 1 * time.Second
	DefaultWSWriteTimeout       = 5 * time.Second
	DefaultWSPingInterval       = 30 * time.Second
	DefaultWSPongTimeout        = 60 * time.Second
	DefaultWSSendBufferSize     = 256
	DefaultWorkers              = 1
	DefaultMaxConnID            = math.MaxInt32
	DefaultJournalBatchSize     = 500
	DefaultJournalFlush         = 2 * time.Second
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultLogLevel             = "info"
)

func (c *ServerConfig) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = uuid.NewString()
	}

	// HTTP defaults
	if c.HTTP.Host == "" {
		c.HTTP.Host = DefaultHTTPHost
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.ReplyTimeout == 0 {
		c.HTTP.ReplyTimeout = DefaultReplyTimeout
	}
	if c.HTTP.ReadHeaderTimeout == 0 {
		c.HTTP.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Web defaults
	if c.Web.VarLibDir == "" {
		c.Web.VarLibDir = DefaultVarLibDir
	}
	if c.Web.CoverImageName == "" {
		c.Web.CoverImageName = DefaultCoverImageName
	}
	if c.Web.MaxRequestSize == 0 {
		c.Web.MaxRequestSize = DefaultMaxRequestSize
	}
	if c.Web.MaxScriptRequestSize == 0 {
		c.Web.MaxScriptRequestSize = DefaultMaxScriptRequestSize
	}

	// Queue defaults
	if c.Queues.PollTimeout == 0 {
		c.Queues.PollTimeout = DefaultPollTimeout
	}
	if c.Queues.ExpireInterval == 0 {
		c.Queues.ExpireInterval = DefaultExpireInterval
	}
	if c.Queues.ExpireMaxAge == 0 {
		c.Queues.ExpireMaxAge = DefaultExpireMaxAge
	}
	if c.Dispatcher.NotifyWindow == 0 {
		c.Dispatcher.NotifyWindow = DefaultNotifyWindow
	}

	// WebSocket defaults
	if c.WebSocket.WriteTimeout == 0 {
		c.WebSocket.WriteTimeout = DefaultWSWriteTimeout
	}
	if c.WebSocket.PingInterval == 0 {
		c.WebSocket.PingInterval = DefaultWSPingInterval
	}
	if c.WebSocket.PongTimeout == 0 {
		c.WebSocket.PongTimeout = DefaultWSPongTimeout
	}
	if c.WebSocket.SendBufferSize == 0 {
		c.WebSocket.SendBufferSize = DefaultWSSendBufferSize
	}

	// Worker defaults
	if c.Workers.API == 0 {
		c.Workers.API = DefaultWorkers
	}
	if c.Workers.Worker == 0 {
		c.Workers.Worker = DefaultWorkers
	}
	if c.Workers.Client == 0 {
		c.Workers.Client = DefaultWorkers
	}

	if c.Identity.MaxConnID == 0 {
		c.Identity.MaxConnID = DefaultMaxConnID
	}

	// Journal defaults
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultJournalFlush
	}
	applyDBDefaults(&c.Journal.Database)

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
