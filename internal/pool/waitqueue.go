package pool

import (
	"container/list"
	"sync"
)

// waitEntry is a single waiter's single-shot wake primitive. wake is closed
// exactly once, either when a connection becomes available or when the
// waiter gives up (timeout/cancellation) — closing a channel is Go's
// natural "signal exactly once, idempotent, broadcast to one reader"
// primitive, so no extra bookkeeping is needed to make signal() safe to
// call twice.
type waitEntry struct {
	wake   chan struct{}
	closed bool
}

func (e *waitEntry) signal() {
	if !e.closed {
		e.closed = true
		close(e.wake)
	}
}

// enrollment is what WaitQueue.enroll hands back to a checkout attempt.
type enrollment struct {
	entry *waitEntry
	elem  *list.Element

	// Immediate is true when the queue was empty prior to this enroll call:
	// the caller is first in line and need not wait on wake before
	// attempting to dequeue a connection (spec.md §4.2).
	Immediate bool
}

// Wake returns the channel that closes when this waiter is signaled.
func (en *enrollment) Wake() <-chan struct{} { return en.entry.wake }

// waitQueue is the FIFO list of requesters waiting for a connection.
// Ordering is strict FIFO by enrollment; fairness is enforced by waking
// only the head entry whenever a connection is returned (signalHead),
// never an arbitrary or newly-arrived waiter.
type waitQueue struct {
	mu      sync.Mutex
	entries *list.List
}

func newWaitQueue() *waitQueue {
	return &waitQueue{entries: list.New()}
}

// enroll appends a new waiter and reports whether it is immediately at the
// head of the queue.
func (q *waitQueue) enroll() *enrollment {
	q.mu.Lock()
	defer q.mu.Unlock()

	immediate := q.entries.Len() == 0
	entry := &waitEntry{wake: make(chan struct{})}
	elem := q.entries.PushBack(entry)

	return &enrollment{entry: entry, elem: elem, Immediate: immediate}
}

// signalHead wakes the head entry, if any. Idempotent: a head entry already
// signaled simply no-ops.
func (q *waitQueue) signalHead() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if front := q.entries.Front(); front != nil {
		front.Value.(*waitEntry).signal()
	}
}

// withdraw removes en's entry from the queue by identity. Safe to call more
// than once or after the entry has already been removed.
func (q *waitQueue) withdraw(en *enrollment) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// list.Remove on an element no longer in this list is a no-op in the
	// stdlib implementation as long as we don't reuse elem across lists,
	// which we never do.
	q.entries.Remove(en.elem)
	en.entry.signal()
}

// len reports the current queue depth.
func (q *waitQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries.Len()
}
