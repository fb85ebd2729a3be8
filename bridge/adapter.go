// Package bridge forwards a pool-scheduled actor's orders onto a bounded,
// synchronous Go channel. It exists because a dispatch actor's Behavior
// runs on a pool worker and must never block — but delivering an order to
// a plain channel can legitimately need to block until a consumer is ready.
// The adapter absorbs that block on a dedicated eternal actor instead, so
// Submit from a pool worker only ever takes an uncontended mutex.
package bridge

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/lguibr/toiler/eternal"
)

type adapterWorld[B any] struct {
	out chan B
	ctx context.Context
}

type adapterBehavior[B any] struct{}

func (adapterBehavior[B]) Receive(world *adapterWorld[B], batch *eternal.Batch[B]) error {
	for order, ok := batch.Next(); ok; order, ok = batch.Next() {
		select {
		case world.out <- order:
		case <-world.ctx.Done():
			return nil
		}
	}
	return nil
}

// Adapter is the forwarding bridge. Producers (typically a dispatch
// actor's Behavior) call Submit; consumers range over Out.
type Adapter[B any] struct {
	master *eternal.MasterHandle[adapterWorld[B], B]
	world  *adapterWorld[B]
	cancel context.CancelFunc
	closed atomic.Bool
}

// New starts an adapter whose output channel is buffered to size bufSize,
// the "synchronous bounded channel" the spec names.
func New[B any](bufSize int, log zerolog.Logger) (*Adapter[B], error) {
	ctx, cancel := context.WithCancel(context.Background())
	world := &adapterWorld[B]{
		out: make(chan B, bufSize),
		ctx: ctx,
	}
	master, err := eternal.NewConstructor[adapterWorld[B], B](world, adapterBehavior[B]{}).
		WithLogger(log).
		Spawn()
	if err != nil {
		cancel()
		return nil, err
	}
	return &Adapter[B]{master: master, world: world, cancel: cancel}, nil
}

// Submit hands order to the forwarding actor. It does not block on the
// downstream channel itself, only on acquiring the actor's mailbox lock,
// so it is always safe to call from a dispatch Behavior running on a pool
// worker.
func (a *Adapter[B]) Submit(order B) error {
	if a.closed.Load() {
		return ErrDisconnected
	}
	if err := a.master.Submit(order); err != nil {
		return ErrDisconnected
	}
	return nil
}

// Out returns the channel consumers read forwarded orders from. Close
// closes it after the forwarding actor has stopped; orders still queued or
// blocked on a full channel when Close runs may be dropped, not forwarded.
func (a *Adapter[B]) Out() <-chan B {
	return a.world.out
}

// Close stops accepting new orders, unblocks any forwarding send still in
// flight, waits for the dedicated goroutine to exit, and closes Out.
func (a *Adapter[B]) Close() {
	if !a.closed.CompareAndSwap(false, true) {
		return
	}
	a.cancel()
	a.master.Stop()
	close(a.world.out)
}
