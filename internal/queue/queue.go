// Package queue provides an unbounded FIFO used to hand events from
// transport goroutines to a single consumer without ever blocking the
// producer.
package queue

import "sync"

// growThreshold is the fill percentage at which the ring doubles.
const growThreshold = 70

// Queue is a thread-safe ring buffer that doubles its capacity when it
// reaches 70% full. Push never blocks.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   []T
	head   int
	tail   int
	count  int
	closed bool

	pushed  int64
	popped  int64
	resizes int
}

// Stats is a point-in-time view of a Queue.
type Stats struct {
	Len      int
	Capacity int
	Pushed   int64
	Popped   int64
	Resizes  int
}

// New creates a queue with the given initial capacity.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue[T]{ring: make([]T, capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item. Returns false once the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	limit := len(q.ring) * growThreshold / 100
	if limit < 1 {
		limit = 1
	}
	if q.count+1 >= limit {
		q.grow()
	}

	q.ring[q.tail] = item
	q.tail = (q.tail + 1) % len(q.ring)
	q.count++
	q.pushed++

	q.cond.Signal()
	return true
}

// Pop removes the oldest item, blocking until one is available.
// Returns false when the queue is closed and empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.take(), true
}

// TryPop removes the oldest item if there is one.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.take(), true
}

// Drain removes up to max items (all of them when max <= 0).
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	n := q.count
	if max > 0 && max < n {
		n = max
	}
	out := make([]T, n)
	for i := range out {
		out[i] = q.take()
	}
	return out
}

// Close stops accepting items and wakes blocked consumers. Items already
// queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns counters for the queue.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Len:      q.count,
		Capacity: len(q.ring),
		Pushed:   q.pushed,
		Popped:   q.popped,
		Resizes:  q.resizes,
	}
}

// take pops the head. Caller holds the lock and has checked count > 0.
func (q *Queue[T]) take() T {
	item := q.ring[q.head]
	var zero T
	q.ring[q.head] = zero
	q.head = (q.head + 1) % len(q.ring)
	q.count--
	q.popped++
	return item
}

// grow doubles the ring, unwrapping it so head starts at zero.
func (q *Queue[T]) grow() {
	ring := make([]T, len(q.ring)*2)
	if q.count > 0 {
		if q.head < q.tail {
			copy(ring, q.ring[q.head:q.tail])
		} else {
			n := copy(ring, q.ring[q.head:])
			copy(ring[n:], q.ring[:q.tail])
		}
	}
	q.ring = ring
	q.head = 0
	q.tail = q.count
	q.resizes++
}
