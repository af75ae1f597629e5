// Package sweeper implements the expiry sweep.
//
// The Sweeper:
//   - Runs every 30 seconds by default
//   - Expires messages older than the max age from every registered queue
//   - Logs evictions at warn level, since they mean a consumer has stalled
package sweeper
