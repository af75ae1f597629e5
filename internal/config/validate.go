package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rickgao/mympd-webserver/internal/acl"
)

// Validate checks that all required fields are set and values are valid.
func (c *ServerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.ReplyTimeout <= 0 {
		return errors.New("http.reply_timeout must be > 0")
	}

	if err := acl.Validate(c.ACL.ACL); err != nil {
		return fmt.Errorf("acl.acl: %w", err)
	}
	if err := acl.Validate(c.ACL.ScriptACL); err != nil {
		return fmt.Errorf("acl.script_acl: %w", err)
	}

	if c.Web.Publish && c.Web.VarLibDir == "" {
		return errors.New("web.varlibdir is required when web.publish is set")
	}
	if c.Web.MaxRequestSize < 1 {
		return errors.New("web.max_request_size must be >= 1")
	}
	if c.Web.MaxScriptRequestSize < 1 {
		return errors.New("web.max_script_request_size must be >= 1")
	}

	if c.Queues.PollTimeout <= 0 {
		return errors.New("queues.poll_timeout must be > 0")
	}
	if c.Queues.ExpireInterval <= 0 {
		return errors.New("queues.expire_interval must be > 0")
	}
	if c.Queues.ExpireMaxAge <= 0 {
		return errors.New("queues.expire_max_age must be > 0")
	}

	if c.WebSocket.SendBufferSize < 1 {
		return errors.New("websocket.send_buffer_size must be >= 1")
	}

	if c.Workers.API < 1 {
		return errors.New("workers.api must be >= 1")
	}
	if c.Workers.Worker < 1 {
		return errors.New("workers.worker must be >= 1")
	}
	if c.Workers.Client < 1 {
		return errors.New("workers.client must be >= 1")
	}

	if c.Identity.MaxConnID < 1 {
		return errors.New("identity.max_conn_id must be >= 1")
	}

	if c.Journal.Enabled {
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if err := c.Journal.Database.validate("journal.database"); err != nil {
			return err
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
