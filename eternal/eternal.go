// Package eternal implements the dedicated-thread actor: unlike dispatch's
// pool-scheduled actor, an eternal actor owns one goroutine for its whole
// life, parked on its mailbox's condition variable between batches instead
// of being handed to a shared pool. It exists for behaviors that must never
// share a worker with anything else — the bridge package builds its forward
// loop on top of one.
package eternal

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Batch is the cursor a Behavior drains orders from within one wake-up,
// mirroring dispatch.Batch.
type Batch[B any] struct {
	items []B
	idx   int
}

// Next returns the next order, or ok=false once exhausted.
func (b *Batch[B]) Next() (order B, ok bool) {
	if b.idx >= len(b.items) {
		var zero B
		return zero, false
	}
	order = b.items[b.idx]
	b.idx++
	return order, true
}

// Len reports how many orders this batch was woken with.
func (b *Batch[B]) Len() int { return len(b.items) }

// Behavior is user code reacting to orders delivered to a dedicated-thread
// actor. Receive is called once per wake-up with every order queued since
// the last one. An error it returns is stored on the actor and surfaces as
// the result of the next Submit/SubmitMany, mirroring how a closure handed
// to start() reports failure back to its caller.
type Behavior[W, B any] interface {
	Receive(world *W, batch *Batch[B]) error
}

// ConstructorHandle builds a dedicated-thread actor before it is spawned.
type ConstructorHandle[W, B any] struct {
	world    *W
	behavior Behavior[W, B]
	log      zerolog.Logger
}

// NewConstructor begins building an eternal actor around world.
func NewConstructor[W, B any](world *W, behavior Behavior[W, B]) *ConstructorHandle[W, B] {
	return &ConstructorHandle[W, B]{world: world, behavior: behavior}
}

// WithLogger attaches structured logging to the actor's lifecycle.
func (c *ConstructorHandle[W, B]) WithLogger(l zerolog.Logger) *ConstructorHandle[W, B] {
	c.log = l
	return c
}

// Spawn starts the dedicated goroutine and returns a live MasterHandle.
func (c *ConstructorHandle[W, B]) Spawn() (*MasterHandle[W, B], error) {
	m := &MasterHandle[W, B]{
		world:    c.world,
		behavior: c.behavior,
		mailbox:  newMailbox[B](),
		log:      c.log,
		stopped:  make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m, nil
}

// MasterHandle is the owning reference to a spawned dedicated-thread actor.
type MasterHandle[W, B any] struct {
	world      *W
	behavior   Behavior[W, B]
	mailbox    *mailbox[B]
	log        zerolog.Logger
	terminated atomic.Bool
	stopped    chan struct{}
	wg         sync.WaitGroup

	errMu   sync.Mutex
	lastErr error
}

// Submit enqueues a single order for the dedicated goroutine.
func (m *MasterHandle[W, B]) Submit(order B) error {
	return m.SubmitMany([]B{order})
}

// SubmitMany enqueues every order as one wake-up. If the previous Receive
// call returned an error, that error is reported here instead of the
// orders being enqueued — the "next submit" spec.md's error taxonomy
// names — and is then cleared, so the one after it sees a clean result
// unless Receive fails again.
func (m *MasterHandle[W, B]) SubmitMany(orders []B) error {
	if err := m.takeError(); err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}
	if !m.mailbox.push(orders...) {
		return ErrTerminated
	}
	return nil
}

func (m *MasterHandle[W, B]) storeError(err error) {
	m.errMu.Lock()
	m.lastErr = err
	m.errMu.Unlock()
}

func (m *MasterHandle[W, B]) takeError() error {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	err := m.lastErr
	m.lastErr = nil
	return err
}

// Stop terminates the actor after it finishes draining whatever is already
// queued, and waits for its goroutine to exit.
func (m *MasterHandle[W, B]) Stop() {
	if !m.terminated.CompareAndSwap(false, true) {
		<-m.stopped
		return
	}
	m.mailbox.close()
	m.wg.Wait()
}

func (m *MasterHandle[W, B]) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer m.wg.Done()
	defer close(m.stopped)

	for {
		items, ok := m.mailbox.swapDrain()
		if !ok {
			return
		}
		m.runBatch(items)
	}
}

func (m *MasterHandle[W, B]) runBatch(items []B) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Msg("eternal: behavior panicked, terminating actor")
			m.terminated.Store(true)
			m.mailbox.close()
		}
	}()
	if err := m.behavior.Receive(m.world, &Batch[B]{items: items}); err != nil {
		m.log.Warn().Err(err).Msg("eternal: behavior returned an error, surfacing it to the next submit")
		m.storeError(err)
	}
}
