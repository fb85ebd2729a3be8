package dispatch

import (
	"runtime"
	"sync/atomic"
)

// mpscNode is one link of the lock-free mailbox queue.
type mpscNode[B any] struct {
	next  atomic.Pointer[mpscNode[B]]
	value B
}

// mpscQueue is a Michael-Scott style multi-producer single-consumer queue.
// Every actor gets its own mailbox; any number of Submit callers push
// concurrently, but only the single pool job currently holding the
// scheduled bit ever drains it, so pop needs no synchronization against
// other poppers.
//
// This is the one piece of the runtime with no third-party equivalent in
// the retrieved corpus: a lock-free MPSC queue is algorithmic plumbing, not
// an ambient concern, so it stays hand-rolled here (see DESIGN.md).
type mpscQueue[B any] struct {
	head atomic.Pointer[mpscNode[B]]
	tail atomic.Pointer[mpscNode[B]]
}

func newMPSCQueue[B any]() *mpscQueue[B] {
	stub := &mpscNode[B]{}
	q := &mpscQueue[B]{}
	q.head.Store(stub)
	q.tail.Store(stub)
	return q
}

// push appends value and returns nothing. Queue depth is not tracked here —
// the activityTag count is the source of truth for it; push only does the
// enqueue.
func (q *mpscQueue[B]) push(value B) {
	node := &mpscNode[B]{value: value}
	prev := q.tail.Swap(node)
	prev.next.Store(node)
}

// pop removes and returns the oldest value. It spins briefly if a
// concurrent push has reserved this slot (advanced tail) but not yet
// published the predecessor's next pointer — the classic MS-queue gap
// between the tail CAS and next-pointer visibility.
func (q *mpscQueue[B]) pop() (B, bool) {
	var zero B
	head := q.head.Load()
	next := spinForNext(head)
	if next == nil {
		return zero, false
	}
	q.head.Store(next)
	value := next.value
	next.value = zero
	return value, true
}

// spinForNext covers the narrow window between a producer's tail.Swap and
// its prev.next.Store by yielding with runtime.Gosched, so a stalled
// producer under heavy contention doesn't spin the consumer at full CPU.
// After 32 yields it gives up and returns nil; the caller sees an empty
// pop and retries later.
func spinForNext[B any](head *mpscNode[B]) *mpscNode[B] {
	next := head.next.Load()
	if next != nil {
		return next
	}
	for spins := 0; ; spins++ {
		next = head.next.Load()
		if next != nil {
			return next
		}
		switch {
		case spins < 32:
			runtime.Gosched()
		default:
			return nil
		}
	}
}

// drain pops up to max items into a fresh Batch. Called only by the job
// currently holding the scheduled bit for this actor.
func (q *mpscQueue[B]) drain(max int) *Batch[B] {
	items := make([]B, 0, max)
	for len(items) < max {
		v, ok := q.pop()
		if !ok {
			break
		}
		items = append(items, v)
	}
	return &Batch[B]{items: items}
}

// Batch is the cursor a Behavior pulls drained orders from, one at a time,
// within a single Serve invocation.
type Batch[B any] struct {
	items []B
	idx   int
}

// Next returns the next order in the batch, or ok=false once exhausted.
func (b *Batch[B]) Next() (order B, ok bool) {
	if b.idx >= len(b.items) {
		var zero B
		return zero, false
	}
	order = b.items[b.idx]
	b.idx++
	return order, true
}

// Len reports the total number of orders this batch was drained with.
func (b *Batch[B]) Len() int { return len(b.items) }
