// Package connection implements the Connection Registry component.
//
// The Connection Registry:
//   - Assigns connection identities, monotonically increasing, wrapping to 1
//   - Tracks open connections and whether they are broadcast-subscribed
//   - Hands the dispatcher a Sender for each identity
//
// Two Sender implementations live here: Exchange, a one-shot reply slot for a
// plain HTTP request, and Session, a gorilla websocket writer for subscribers.
// Identities are only unique among currently open connections.
package connection
