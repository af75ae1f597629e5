// Package config loads the web server configuration.
//
// Configuration is a single YAML file:
//   - ${VAR} references are expanded from the environment before parsing
//   - Missing optional values are filled by applyDefaults
//   - Validate rejects invalid ports, worker counts and ACL syntax
package config
