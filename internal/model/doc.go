// Package model defines the messages exchanged between the web server and the workers.
//
// Conventions:
//   - Correlation ids: -1 internal config, 0 broadcast notify, >0 connection identity
//   - Request and response bodies are raw JSON-RPC 2.0 documents
//   - A message belongs to exactly one side at a time; the queue hands ownership over
package model
