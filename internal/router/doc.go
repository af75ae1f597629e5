// Package router implements the Command Router component.
//
// The Command Router:
//   - Validates JSON-RPC request envelopes at the network boundary
//   - Maps method names to enumerated command ids and rejects private methods
//   - Routes MYMPD_API_* to the API queue, MPDWORKER_API_* to the worker queue,
//     everything else to the client queue
//   - Accepts only MYMPD_API_SCRIPT_POST_EXECUTE on the scripting path
//
// Rejections are fail-fast: nothing rejected is ever enqueued or retried.
package router
