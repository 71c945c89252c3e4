package util

import (
	"runtime"
	"sync"
	"sync/atomic"
)

type queueNode[T any] struct {
	value T
	next  atomic.Pointer[queueNode[T]]
}

// EventQueue is a lock-free multi-producer single-consumer queue. Items are appended
// to a linked list with CAS and drained by one goroutine that calls the handler for
// each of them in queue order.
//
// Items pushed by one producer are handled in the order they were pushed. There is
// no ordering guarantee between producers.
type EventQueue[T any] struct {
	head   atomic.Pointer[queueNode[T]] // owned by the consumer
	tail   atomic.Pointer[queueNode[T]]
	closed atomic.Bool
	done   chan struct{}

	mu   sync.Mutex
	cond *sync.Cond

	handle func(T)
}

// NewEventQueue creates a queue and starts its consumer goroutine.
func NewEventQueue[T any](handle func(T)) *EventQueue[T] {
	q := &EventQueue[T]{
		done:   make(chan struct{}),
		handle: handle,
	}
	q.cond = sync.NewCond(&q.mu)

	sentinel := &queueNode[T]{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.consume()
	return q
}

// Push appends an item. Returns false if the queue was already closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *EventQueue[T]) Push(value T) bool {
	if q.closed.Load() {
		return false
	}

	n := &queueNode[T]{value: value}
	var spins uint8

	for {
		tail := q.tail.Load()
		next := tail.next.Load()

		if next != nil {
			// another producer linked a node but did not move the tail yet
			q.tail.CompareAndSwap(tail, next)
		} else if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			q.wake()
			return true
		}

		if spins < 6 {
			spins++
			for i := 0; i < 1<<spins; i++ {
				runtime.Gosched()
			}
		} else {
			runtime.Gosched()
		}
	}
}

// Close stops accepting items and blocks until every item pushed before it has been
// handled. Producers must be done pushing before Close is called.
func (q *EventQueue[T]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		q.wake()
	}
	<-q.done
}

// Len counts the items not yet handled. O(n), for tests and debugging.
func (q *EventQueue[T]) Len() int {
	count := 0
	for n := q.head.Load().next.Load(); n != nil; n = n.next.Load() {
		count++
	}
	return count
}

// wake signals the consumer under the mutex so a signal cannot slip in between the
// consumer's emptiness check and its Wait.
func (q *EventQueue[T]) wake() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

func (q *EventQueue[T]) consume() {
	defer close(q.done)

	for {
		drained := false
		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}
			q.head.Store(next)
			q.handle(next.value)

			var zero T
			next.value = zero
			drained = true
		}

		if drained {
			continue
		}

		q.mu.Lock()
		if q.head.Load().next.Load() == nil {
			if q.closed.Load() {
				q.mu.Unlock()
				return
			}
			q.cond.Wait()
		}
		q.mu.Unlock()
	}
}
