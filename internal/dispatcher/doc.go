// Package dispatcher implements the Response Dispatcher component.
//
// The Response Dispatcher:
//   - Drains the single response queue, one message per poll cycle
//   - Routes correlation id -1 to the internal configuration handler
//   - Broadcasts id 0 to every subscribed connection, suppressing repeats
//     of the previous notification inside the de-dup window
//   - Delivers ids > 0 to the connection currently holding that identity
//
// A response for a connection that has already closed is dropped. That race is
// expected under normal churn and only logged at debug level.
package dispatcher
