package queue

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// LengthTimeout is returned by Length when the queue lock could not be acquired in time.
// Callers treat it as "assume empty, retry later".
const LengthTimeout = -1

// Errors
var (
	ErrNilPayload = errors.New("nil payload")
	ErrClosed     = errors.New("queue closed")
)

// Message is a queued payload. Whoever holds a popped Message owns Payload.
type Message[T any] struct {
	Payload    *T
	ID         int64     // Correlation id
	EnqueuedAt time.Time // Set by Push
}

// Option configures a Queue.
type Option func(*options)

type options struct {
	initialCapacity int
	now             func() time.Time
}

// WithInitialCapacity sets the starting ring size. The ring doubles as needed.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		o.initialCapacity = n
	}
}

// WithClock replaces time.Now for enqueue timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Queue is a thread-safe FIFO of Messages.
//
// A single weighted semaphore of size one is the queue lock; unlike sync.Mutex it can be
// acquired with a deadline. Every push closes and replaces the notify channel, which wakes
// all waiting poppers; each re-checks its predicate under the lock.
type Queue[T any] struct {
	lock   *semaphore.Weighted
	notify chan struct{}
	now    func() time.Time

	buf      []Message[T]
	head     int // read position
	count    int
	capacity int
	closed   bool

	// Stats
	totalPushed  int64
	totalPopped  int64
	totalExpired int64
	resizeCount  int
}

// New creates an empty queue.
func New[T any](opts ...Option) *Queue[T] {
	o := options{
		initialCapacity: 16,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.initialCapacity < 1 {
		o.initialCapacity = 1
	}

	return &Queue[T]{
		lock:     semaphore.NewWeighted(1),
		notify:   make(chan struct{}),
		now:      o.now,
		buf:      make([]Message[T], o.initialCapacity),
		capacity: o.initialCapacity,
	}
}

// Push appends payload at the tail with the current timestamp and wakes waiters.
// It never waits for a consumer.
func (q *Queue[T]) Push(payload *T, id int64) error {
	if payload == nil {
		return ErrNilPayload
	}

	q.acquire()
	defer q.release()

	if q.closed {
		return ErrClosed
	}

	// Grow at or above 70% capacity after adding this item
	threshold := (q.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.index(q.count)] = Message[T]{
		Payload:    payload,
		ID:         id,
		EnqueuedAt: q.now(),
	}
	q.count++
	q.totalPushed++

	close(q.notify)
	q.notify = make(chan struct{})
	return nil
}

// Pop waits up to timeout for a qualifying message and removes it.
//
// With id == 0 the head is returned. Otherwise the first message carrying that
// correlation id is removed and the order of the remaining messages is preserved.
// A timeout <= 0 makes a single non-blocking attempt.
func (q *Queue[T]) Pop(timeout time.Duration, id int64) (Message[T], bool) {
	if timeout <= 0 {
		q.acquire()
		defer q.release()
		return q.take(id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return q.PopContext(ctx, id)
}

// PopContext is Pop bounded by ctx instead of a timeout.
// It returns false when ctx is done, or when the queue is closed and holds no match.
func (q *Queue[T]) PopContext(ctx context.Context, id int64) (Message[T], bool) {
	var zero Message[T]
	for {
		if err := q.lock.Acquire(ctx, 1); err != nil {
			return zero, false
		}
		if msg, ok := q.take(id); ok {
			q.release()
			return msg, true
		}
		if q.closed {
			q.release()
			return zero, false
		}
		wake := q.notify
		q.release()

		select {
		case <-wake:
		case <-ctx.Done():
			return zero, false
		}
	}
}

// Wait blocks until the queue holds at least one message, the queue is closed,
// or ctx is done. It reports whether a message is available; nothing is removed.
func (q *Queue[T]) Wait(ctx context.Context) bool {
	for {
		if err := q.lock.Acquire(ctx, 1); err != nil {
			return false
		}
		if q.count > 0 {
			q.release()
			return true
		}
		if q.closed {
			q.release()
			return false
		}
		wake := q.notify
		q.release()

		select {
		case <-wake:
		case <-ctx.Done():
			return false
		}
	}
}

// Length returns the number of queued messages, or LengthTimeout if the lock could
// not be acquired within timeout.
func (q *Queue[T]) Length(timeout time.Duration) int {
	if !q.acquireWithin(timeout) {
		return LengthTimeout
	}
	defer q.release()
	return q.count
}

// Expire removes every message enqueued more than maxAge ago and returns how many
// were removed. The survivors keep their order.
func (q *Queue[T]) Expire(maxAge time.Duration) int {
	q.acquire()
	defer q.release()

	cutoff := q.now().Add(-maxAge)
	kept := 0
	for i := 0; i < q.count; i++ {
		msg := q.buf[q.index(i)]
		if msg.EnqueuedAt.Before(cutoff) {
			continue
		}
		q.buf[q.index(kept)] = msg
		kept++
	}

	removed := q.count - kept
	var zero Message[T]
	for i := kept; i < q.count; i++ {
		q.buf[q.index(i)] = zero // Clear reference for GC
	}
	q.count = kept
	q.totalExpired += int64(removed)

	return removed
}

// Close rejects further pushes and wakes all waiters.
// Messages already queued can still be popped.
func (q *Queue[T]) Close() {
	q.acquire()
	defer q.release()

	if q.closed {
		return
	}
	q.closed = true
	close(q.notify)
	q.notify = make(chan struct{})
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() Stats {
	q.acquire()
	defer q.release()
	return Stats{
		Length:       q.count,
		Capacity:     q.capacity,
		TotalPushed:  q.totalPushed,
		TotalPopped:  q.totalPopped,
		TotalExpired: q.totalExpired,
		ResizeCount:  q.resizeCount,
	}
}

// Stats contains queue statistics.
type Stats struct {
	Length       int
	Capacity     int
	TotalPushed  int64
	TotalPopped  int64
	TotalExpired int64
	ResizeCount  int
}

func (q *Queue[T]) acquire() {
	// Background context never cancels, so Acquire cannot fail.
	_ = q.lock.Acquire(context.Background(), 1)
}

func (q *Queue[T]) release() {
	q.lock.Release(1)
}

func (q *Queue[T]) acquireWithin(timeout time.Duration) bool {
	if q.lock.TryAcquire(1) {
		return true
	}
	if timeout <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return q.lock.Acquire(ctx, 1) == nil
}

// index maps a logical position to a ring slot. Must be called with lock held.
func (q *Queue[T]) index(i int) int {
	return (q.head + i) % q.capacity
}

// take removes the first qualifying message. Must be called with lock held.
func (q *Queue[T]) take(id int64) (Message[T], bool) {
	var zero Message[T]
	for i := 0; i < q.count; i++ {
		msg := q.buf[q.index(i)]
		if id != 0 && msg.ID != id {
			continue
		}
		q.removeAt(i)
		q.totalPopped++
		return msg, true
	}
	return zero, false
}

// removeAt unlinks the message at logical position i, shifting later messages
// forward by one. Must be called with lock held.
func (q *Queue[T]) removeAt(i int) {
	var zero Message[T]
	if i == 0 {
		q.buf[q.head] = zero
		q.head = (q.head + 1) % q.capacity
		q.count--
		return
	}
	for j := i; j < q.count-1; j++ {
		q.buf[q.index(j)] = q.buf[q.index(j+1)]
	}
	q.buf[q.index(q.count-1)] = zero
	q.count--
}

// grow doubles the ring capacity. Must be called with lock held.
func (q *Queue[T]) grow() {
	newCapacity := q.capacity * 2
	newBuf := make([]Message[T], newCapacity)

	for i := 0; i < q.count; i++ {
		newBuf[i] = q.buf[q.index(i)]
	}

	q.buf = newBuf
	q.head = 0
	q.capacity = newCapacity
	q.resizeCount++
}
