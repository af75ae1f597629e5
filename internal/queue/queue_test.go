package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func payload(s string) *string {
	return &s
}

func TestQueue_FIFO(t *testing.T) {
	q := New[string]()

	for i := int64(1); i <= 5; i++ {
		if err := q.Push(payload(string(rune('a'+i-1))), i); err != nil {
			t.Fatalf("Push(%d) error = %v", i, err)
		}
	}

	for i := int64(1); i <= 5; i++ {
		msg, ok := q.Pop(0, 0)
		if !ok {
			t.Fatalf("Pop() returned false for item %d", i)
		}
		if msg.ID != i {
			t.Errorf("ID = %d, want %d", msg.ID, i)
		}
		if *msg.Payload != string(rune('a'+i-1)) {
			t.Errorf("Payload = %q, want %q", *msg.Payload, string(rune('a'+i-1)))
		}
	}

	if _, ok := q.Pop(0, 0); ok {
		t.Error("expected empty queue")
	}
}

func TestQueue_PushNil(t *testing.T) {
	q := New[string]()

	if err := q.Push(nil, 1); !errors.Is(err, ErrNilPayload) {
		t.Errorf("Push(nil) error = %v, want ErrNilPayload", err)
	}
	if q.Length(0) != 0 {
		t.Errorf("Length() = %d, want 0", q.Length(0))
	}
}

func TestQueue_FilteredPopPreservesOrder(t *testing.T) {
	q := New[string]()

	ids := []int64{3, 7, 3, 9, 7, 1}
	for i, id := range ids {
		q.Push(payload(string(rune('a'+i))), id)
	}

	msg, ok := q.Pop(0, 7)
	if !ok {
		t.Fatal("expected message with id 7")
	}
	if msg.ID != 7 || *msg.Payload != "b" {
		t.Errorf("got id=%d payload=%q, want id=7 payload=b", msg.ID, *msg.Payload)
	}

	if _, ok := q.Pop(0, 42); ok {
		t.Error("expected no message with id 42")
	}

	wantIDs := []int64{3, 3, 9, 7, 1}
	wantPayloads := []string{"a", "c", "d", "e", "f"}
	for i := range wantIDs {
		msg, ok := q.Pop(0, 0)
		if !ok {
			t.Fatalf("Pop() returned false at %d", i)
		}
		if msg.ID != wantIDs[i] || *msg.Payload != wantPayloads[i] {
			t.Errorf("[%d] got id=%d payload=%q, want id=%d payload=%q",
				i, msg.ID, *msg.Payload, wantIDs[i], wantPayloads[i])
		}
	}
}

func TestQueue_FilteredPopAcrossGrowth(t *testing.T) {
	q := New[int](WithInitialCapacity(2))

	// Wrap the ring before growing so filtered removal crosses the seam.
	for i := 0; i < 100; i++ {
		v := i
		q.Push(&v, int64(i%4)+1)
		if i%3 == 0 {
			q.Pop(0, 0)
		}
	}

	before := q.Length(0)
	for {
		msg, ok := q.Pop(0, 2)
		if !ok {
			break
		}
		if msg.ID != 2 {
			t.Fatalf("filtered pop returned id %d", msg.ID)
		}
	}

	last := -1
	remaining := 0
	for {
		msg, ok := q.Pop(0, 0)
		if !ok {
			break
		}
		if msg.ID == 2 {
			t.Errorf("id 2 message %d survived filtered drain", *msg.Payload)
		}
		if *msg.Payload <= last {
			t.Errorf("order broken: %d after %d", *msg.Payload, last)
		}
		last = *msg.Payload
		remaining++
	}
	if remaining >= before {
		t.Errorf("remaining = %d, expected fewer than %d", remaining, before)
	}
	if q.Stats().ResizeCount == 0 {
		t.Error("expected the ring to grow")
	}
}

func TestQueue_PopTimeout(t *testing.T) {
	q := New[string]()

	start := time.Now()
	_, ok := q.Pop(30*time.Millisecond, 0)
	elapsed := time.Since(start)

	if ok {
		t.Error("expected timeout on empty queue")
	}
	if elapsed < 25*time.Millisecond {
		t.Errorf("Pop returned after %v, expected to wait ~30ms", elapsed)
	}
}

func TestQueue_BlockingPopWakesOnPush(t *testing.T) {
	q := New[string]()

	received := make(chan string, 1)
	go func() {
		msg, ok := q.Pop(time.Second, 0)
		if ok {
			received <- *msg.Payload
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(payload("hello"), 5)

	select {
	case got := <-received:
		if got != "hello" {
			t.Errorf("received %q, want hello", got)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Pop did not wake on Push")
	}
}

func TestQueue_FilteredWaiterIgnoresOtherIDs(t *testing.T) {
	q := New[string]()

	received := make(chan int64, 1)
	go func() {
		msg, ok := q.Pop(time.Second, 9)
		if ok {
			received <- msg.ID
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(payload("other"), 4)
	time.Sleep(10 * time.Millisecond)

	select {
	case id := <-received:
		t.Fatalf("filtered waiter returned id %d early", id)
	default:
	}

	q.Push(payload("mine"), 9)

	select {
	case id := <-received:
		if id != 9 {
			t.Errorf("received id %d, want 9", id)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("filtered waiter never woke")
	}

	if q.Length(0) != 1 {
		t.Errorf("Length() = %d, want 1", q.Length(0))
	}
}

func TestQueue_PopContextCancel(t *testing.T) {
	q := New[string]()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		_, ok := q.PopContext(ctx, 0)
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected false after cancel")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("PopContext did not return after cancel")
	}
}

func TestQueue_LengthTimeoutWhileLocked(t *testing.T) {
	q := New[string]()
	q.Push(payload("x"), 1)

	q.acquire()
	got := q.Length(20 * time.Millisecond)
	q.release()

	if got != LengthTimeout {
		t.Errorf("Length() while locked = %d, want %d", got, LengthTimeout)
	}
	if got := q.Length(20 * time.Millisecond); got != 1 {
		t.Errorf("Length() = %d, want 1", got)
	}
}

func TestQueue_Expire(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	q := New[string](WithClock(clock.Now))

	q.Push(payload("old-1"), 1)
	q.Push(payload("old-2"), 2)
	clock.Advance(30 * time.Second)
	q.Push(payload("new-1"), 3)
	clock.Advance(10 * time.Second)
	q.Push(payload("new-2"), 4)
	clock.Advance(5 * time.Second)

	before := q.Length(0)
	removed := q.Expire(20 * time.Second)

	if removed != 2 {
		t.Errorf("Expire() = %d, want 2", removed)
	}
	if after := q.Length(0); after != before-removed {
		t.Errorf("Length() = %d, want %d", after, before-removed)
	}

	for _, want := range []int64{3, 4} {
		msg, ok := q.Pop(0, 0)
		if !ok {
			t.Fatalf("expected survivor %d", want)
		}
		if msg.ID != want {
			t.Errorf("ID = %d, want %d", msg.ID, want)
		}
	}

	if q.Stats().TotalExpired != 2 {
		t.Errorf("TotalExpired = %d, want 2", q.Stats().TotalExpired)
	}
}

func TestQueue_ExpireNothing(t *testing.T) {
	q := New[string]()
	q.Push(payload("a"), 1)

	if removed := q.Expire(time.Hour); removed != 0 {
		t.Errorf("Expire() = %d, want 0", removed)
	}
	if q.Length(0) != 1 {
		t.Errorf("Length() = %d, want 1", q.Length(0))
	}
}

func TestQueue_Close(t *testing.T) {
	q := New[string]()
	q.Push(payload("left"), 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drains the remaining message, then observes the close.
		q.Pop(time.Second, 0)
		if _, ok := q.Pop(time.Second, 0); ok {
			t.Error("expected false after close")
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("waiter not woken by Close")
	}

	if err := q.Push(payload("late"), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Push after Close error = %v, want ErrClosed", err)
	}
	q.Close() // idempotent
}

func TestQueue_ConcurrentProducersConsumers(t *testing.T) {
	q := New[int]()

	const producers = 4
	const perProducer = 500

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := p*perProducer + i
				q.Push(&v, int64(p+1))
			}
		}(p)
	}

	var mu sync.Mutex
	seen := make(map[int]bool)
	var cwg sync.WaitGroup
	for c := 0; c < 3; c++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for {
				msg, ok := q.Pop(100*time.Millisecond, 0)
				if !ok {
					return
				}
				mu.Lock()
				seen[*msg.Payload] = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	cwg.Wait()

	if len(seen) != producers*perProducer {
		t.Errorf("consumed %d distinct messages, want %d", len(seen), producers*perProducer)
	}
	stats := q.Stats()
	if stats.TotalPushed != stats.TotalPopped {
		t.Errorf("TotalPushed = %d, TotalPopped = %d", stats.TotalPushed, stats.TotalPopped)
	}
}

func TestQueue_WaitDoesNotConsume(t *testing.T) {
	q := New[int]()

	go func() {
		time.Sleep(20 * time.Millisecond)
		v := 5
		q.Push(&v, 9)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if !q.Wait(ctx) {
		t.Fatal("Wait() = false, want true")
	}
	if n := q.Length(0); n != 1 {
		t.Errorf("Length() = %d, want 1", n)
	}

	empty := New[int]()
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	if empty.Wait(short) {
		t.Error("Wait() on empty queue = true, want false")
	}
}
