// Package server is the HTTP and WebSocket boundary of the web server.
//
// The Server:
//   - Applies the connection ACL to every request
//   - Opens a connection identity per API request and per websocket
//   - Hands API bodies to the command router and waits for the reply
//   - Serves published directories through the current rewrite patterns
//
// Everything behind a connection identity is asynchronous: the router only
// enqueues, and the dispatcher delivers the reply to the identity's Sender.
package server
