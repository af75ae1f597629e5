package config

import (
	"log/slog"
	"strings"
	"time"
)

// ServerConfig is the root configuration for a web server instance.
type ServerConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	HTTP       HTTPConfig       `yaml:"http"`
	ACL        ACLConfig        `yaml:"acl"`
	Web        WebConfig        `yaml:"web"`
	Queues     QueuesConfig     `yaml:"queues"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Workers    WorkersConfig    `yaml:"workers"`
	Identity   IdentityConfig   `yaml:"identity"`
	Journal    JournalConfig    `yaml:"journal"`
	Log        LogConfig        `yaml:"log"`
}

// InstanceConfig identifies this web server. An empty id is replaced by a random uuid.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReplyTimeout      time.Duration `yaml:"reply_timeout"` // Max wait for a worker reply
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// ACLConfig holds the two independent access lists.
type ACLConfig struct {
	ACL             string `yaml:"acl"`        // Checked for every request
	ScriptACL       string `yaml:"script_acl"` // Checked again for /api/script
	RemoteScripting bool   `yaml:"remote_scripting"`
}

// WebConfig holds static web and request settings.
type WebConfig struct {
	VarLibDir            string `yaml:"varlibdir"`
	Publish              bool   `yaml:"publish"`
	Smartpls             bool   `yaml:"smartpls"`
	ReadOnly             bool   `yaml:"readonly"`
	CoverImageName       string `yaml:"coverimage_name"`
	MaxRequestSize       int    `yaml:"max_request_size"`
	MaxScriptRequestSize int    `yaml:"max_script_request_size"`
}

// QueuesConfig holds work queue timing.
type QueuesConfig struct {
	PollTimeout    time.Duration `yaml:"poll_timeout"`
	ExpireInterval time.Duration `yaml:"expire_interval"`
	ExpireMaxAge   time.Duration `yaml:"expire_max_age"`
}

// DispatcherConfig holds response dispatcher settings.
type DispatcherConfig struct {
	NotifyWindow time.Duration `yaml:"notify_window"`
}

// WebSocketConfig holds subscriber session settings.
type WebSocketConfig struct {
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongTimeout    time.Duration `yaml:"pong_timeout"`
	SendBufferSize int           `yaml:"send_buffer_size"`
}

// WorkersConfig sets the number of workers per request queue.
type WorkersConfig struct {
	API    int `yaml:"api"`
	Worker int `yaml:"worker"`
	Client int `yaml:"client"`
}

// IdentityConfig holds connection identity settings.
type IdentityConfig struct {
	MaxConnID int64 `yaml:"max_conn_id"`
}

// JournalConfig holds the optional routing journal.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// SlogLevel maps Level to a slog level; unknown values mean info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
