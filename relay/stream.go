package relay

import "sync/atomic"

var streamSeq atomic.Uint64

// StreamToken identifies one in-flight stream, unique within the requester
// that started it. It carries the stamp the requester attached when the
// stream began and a cancellation flag shared by reference between the
// producer's StreamHandle and every StreamMore/StreamCancel the consumer
// sends back through it, so a cancel racing an in-flight NoMore only ever
// fires once (P6).
type StreamToken[S any] struct {
	id    uint64
	Stamp S
	armed *atomic.Bool
}

func newStreamToken[S any](stamp S, armed *atomic.Bool) StreamToken[S] {
	return StreamToken[S]{id: streamSeq.Add(1), Stamp: stamp, armed: armed}
}

// ID distinguishes concurrent streams sharing the same Stamp type.
func (t StreamToken[S]) ID() uint64 { return t.id }

// StreamStart is the first message of a stream, delivered to the consumer
// as soon as the producer calls StartStream: either the first value (More
// true) or, for an immediately-exhausted producer, the terminal marker
// (More false, Value the zero value) — matching S4's empty-range case,
// which reports NoMore without ever delivering an item.
type StreamStart[I, S any] struct {
	Value I
	More  bool
	Token StreamToken[S]
}

// StreamItem is every delivery after StreamStart, sent in answer to a
// pulled StreamMore: one more value (More true), or the terminal marker
// (More false) ending the stream.
type StreamItem[I, S any] struct {
	Value I
	More  bool
	Token StreamToken[S]
}

// StreamMore is what a consumer submits to the producer actor to pull the
// next item, carrying whatever continuation payload the caller supplies
// alongside the token identifying which stream it continues. Sent in
// response to a StreamStart or StreamItem whose More flag was true.
type StreamMore[I, S any] struct {
	Payload I
	Token   StreamToken[S]
}

// StreamCancel tears a stream down early, sent by whichever side gives up
// on it first: the producer via StreamHandle.Release, or the consumer via
// CancelPull.
type StreamCancel[S any] struct {
	Token StreamToken[S]
}

// StreamHandle is held by a stream's producer. Next answers a pulled
// StreamMore with one more value; Finish answers one with the terminal
// marker (or ends the stream proactively) and disarms the handle; Release
// cancels the stream if it's abandoned before Finish. Finish and Release
// are each idempotent and mutually exclusive — whichever runs first wins,
// matching P6 (no cancel after the stream has already said NoMore).
type StreamHandle[B, I, S any] struct {
	t         *Transmitter[B]
	token     StreamToken[S]
	itemEnv   func(StreamItem[I, S]) B
	cancelEnv func(StreamCancel[S]) B
}

// StartStream begins a stream addressed through t, stamped with stamp, and
// eagerly delivers StreamStart carrying the first value. When ok is false
// the producer has nothing to offer at all (an immediately-exhausted
// range, say); StreamStart itself then carries the terminal marker and the
// handle starts disarmed, so a later Release on it is a no-op. The caller
// supplies converters wrapping StreamStart, StreamItem and StreamCancel
// into the consumer's order type B, the same pattern ReplyHandle uses.
func StartStream[B, I, S any](
	t *Transmitter[B],
	stamp S,
	value I,
	ok bool,
	startEnv func(StreamStart[I, S]) B,
	itemEnv func(StreamItem[I, S]) B,
	cancelEnv func(StreamCancel[S]) B,
) (*StreamHandle[B, I, S], error) {
	armed := new(atomic.Bool)
	armed.Store(ok)
	if !ok {
		var zero I
		value = zero
	}
	token := newStreamToken(stamp, armed)
	h := &StreamHandle[B, I, S]{t: t, token: token, itemEnv: itemEnv, cancelEnv: cancelEnv}
	msg := startEnv(StreamStart[I, S]{Value: value, More: ok, Token: token})
	if err := t.Submit(msg); err != nil {
		return nil, err
	}
	return h, nil
}

// Token identifies this stream to the consumer, carried onward in every
// StreamItem so the consumer can address its next StreamMore pull.
func (h *StreamHandle[B, I, S]) Token() StreamToken[S] { return h.token }

// Next answers a pulled StreamMore with one more value. Returns
// ErrStreamClosed once the stream has already finished or been released.
func (h *StreamHandle[B, I, S]) Next(value I) error {
	if !h.token.armed.Load() {
		return ErrStreamClosed
	}
	msg := h.itemEnv(StreamItem[I, S]{Value: value, More: true, Token: h.token})
	return h.t.Submit(msg)
}

// Finish sends the terminal marker and disarms the handle. Idempotent.
func (h *StreamHandle[B, I, S]) Finish() error {
	if !h.token.armed.CompareAndSwap(true, false) {
		return nil
	}
	var zero I
	msg := h.itemEnv(StreamItem[I, S]{Value: zero, More: false, Token: h.token})
	return h.t.Submit(msg)
}

// Release cancels the stream if Finish hasn't already run. Safe to defer
// unconditionally right after StartStream.
func (h *StreamHandle[B, I, S]) Release() error {
	if !h.token.armed.CompareAndSwap(true, false) {
		return nil
	}
	msg := h.cancelEnv(StreamCancel[S]{Token: h.token})
	return h.t.Submit(msg)
}

// More is what a consumer calls, on receiving a StreamStart or StreamItem
// whose More flag is true, to pull the next item: it submits
// StreamMore{payload, token} to the producer actor, addressed through
// producer (a Transmitter targeting the producer's own mailbox type P,
// distinct from the consumer's B). The producer answers asynchronously
// with a StreamItem through the StreamHandle it kept for this token.
func More[P, I, S any](
	producer *Transmitter[P],
	token StreamToken[S],
	payload I,
	moreEnv func(StreamMore[I, S]) P,
) error {
	if !token.armed.Load() {
		return ErrStreamClosed
	}
	return producer.Submit(moreEnv(StreamMore[I, S]{Payload: payload, Token: token}))
}

// CancelPull lets a consumer give up on a stream before it naturally
// terminates, the consumer-side mirror of StreamHandle.Release: it submits
// StreamCancel{token} to the producer actor addressed through producer.
func CancelPull[P, S any](
	producer *Transmitter[P],
	token StreamToken[S],
	cancelEnv func(StreamCancel[S]) P,
) error {
	if !token.armed.CompareAndSwap(true, false) {
		return nil
	}
	return producer.Submit(cancelEnv(StreamCancel[S]{Token: token}))
}
