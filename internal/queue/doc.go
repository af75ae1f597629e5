// Package queue implements the Work Queue shared by the network side and the workers.
//
// The Work Queue:
//   - Is a generic FIFO of owned payload pointers tagged with a correlation id
//   - Never blocks producers and is unbounded (a stalled consumer shows up in Expire counts)
//   - Supports blocking pop with timeout, optionally filtered by correlation id
//   - Bounds lock acquisition for length queries so poll loops cannot stall
//   - Evicts messages older than a maximum age in a single pass
package queue
