package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/mympd-webserver/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	port := cfg.Port
	if port == 0 {
		port = config.DefaultDBPort
	}

	// A passwordless user relies on pgpass or trust authentication.
	userInfo := url.QueryEscape(cfg.User)
	if cfg.Password != "" {
		userInfo += ":" + escapedPassword
	}

	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s&application_name=mympd-web",
		userInfo,
		cfg.Host,
		port,
		cfg.Name,
		sslMode,
	)
}
