// Package worker runs the request consumers.
//
// The Pool:
//   - Runs a fixed number of goroutines per request queue
//   - Processes one request fully before popping the next
//   - Pushes every result onto the shared response queue with the request's
//     connection id as correlation id
//
// Workers only ever talk to the web server through the queues.
package worker
