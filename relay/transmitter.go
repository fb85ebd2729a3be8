// Package relay implements the reply/stream transport: a Transmitter is a
// weak back-reference to an actor's mailbox, and ReplyHandle/StreamHandle
// are one-shot and multi-item tickets built on top of it. Nothing in this
// package keeps the target actor's world alive — committing or cancelling
// through a dead target just reports the target's own "gone" error.
package relay

// weakTarget is the minimal shape Transmitter needs from whatever it points
// at: submit one order, failing if the referent is gone. Both
// dispatch.WeakHandle and dispatch.MasterHandle satisfy it, as does
// eternal.MasterHandle; relay never imports dispatch or eternal directly,
// so it stays usable by any actor-shaped submitter.
type weakTarget[B any] interface {
	Submit(order B) error
}

// Transmitter is a cloneable, non-owning reference to an actor's mailbox of
// message type B. Callers build ReplyHandle and StreamHandle values from
// one Transmitter to route replies back to that actor.
type Transmitter[B any] struct {
	target weakTarget[B]
}

// NewTransmitter wraps target, typically a dispatch.WeakHandle[W, B] so the
// Transmitter never outlives the actor it points at.
func NewTransmitter[B any](target weakTarget[B]) *Transmitter[B] {
	return &Transmitter[B]{target: target}
}

// Clone returns an independent Transmitter pointed at the same target.
// Transmitters carry no state beyond the target reference, so Clone is
// just a copy, but it is exposed as its own method so callers don't need to
// copy the struct themselves.
func (t *Transmitter[B]) Clone() *Transmitter[B] {
	return &Transmitter[B]{target: t.target}
}

// Submit forwards order to the target actor, failing with the target's own
// "gone" error if it has already terminated.
func (t *Transmitter[B]) Submit(order B) error {
	return t.target.Submit(order)
}
