package bridge

import "errors"

// ErrDisconnected is returned by Submit once Close has been called, or when
// the forwarding actor no longer accepts orders.
var ErrDisconnected = errors.New("bridge: adapter disconnected")
