package eternal

import "sync"

// mailbox is the swap-drain buffer a dedicated-thread actor sleeps on: push
// appends under the lock and signals, and the single reader swaps the
// whole backing slice out for a fresh nil one rather than popping one item
// at a time, so the lock is held only for the append or the swap, never for
// the length of a drain.
type mailbox[B any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []B
	closed bool
}

func newMailbox[B any]() *mailbox[B] {
	m := &mailbox[B]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// push appends values. Reports false if the mailbox is already closed, in
// which case the values are dropped.
func (m *mailbox[B]) push(values ...B) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.buf = append(m.buf, values...)
	m.cond.Signal()
	return true
}

// swapDrain blocks until at least one value is queued or the mailbox is
// closed. On wake it swaps the internal slice out for a fresh one and
// returns the drained batch; ok is false only once the mailbox is closed
// and empty, signaling the dedicated goroutine to exit.
func (m *mailbox[B]) swapDrain() (batch []B, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.buf) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.buf) == 0 {
		return nil, false
	}
	batch, m.buf = m.buf, nil
	return batch, true
}

// close marks the mailbox closed and wakes the reader so it can observe it.
func (m *mailbox[B]) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
}
