package dispatch

import "sync"

// registry maps a PID's string form to the actor's live inner block. Go has
// no weak pointer in general use, so WeakHandle upgrades through this
// registry instead: Finish() removes the entry, and any WeakHandle already
// holding the PID fails its next Upgrade with ErrTerminated — a weak
// reference that fails closed once its referent is gone.
var registry sync.Map // PID.String() -> any (*inner[W, B])

func registryStore(pid PID, inner any) {
	registry.Store(pid.String(), inner)
}

func registryDelete(pid PID) {
	registry.Delete(pid.String())
}

func registryLoad(pid PID) (any, bool) {
	return registry.Load(pid.String())
}

// WeakHandle is a non-owning reference to a pool-scheduled actor. Holding
// one never keeps the actor's world or mailbox alive past Finish; every
// operation re-resolves the PID through the registry and reports
// ErrTerminated if the actor is gone.
type WeakHandle[W, B any] struct {
	pid PID
}

// Upgrade resolves the weak handle to a live MasterHandle, or fails if the
// actor has already finished.
func (h WeakHandle[W, B]) Upgrade() (*MasterHandle[W, B], error) {
	v, ok := registryLoad(h.pid)
	if !ok {
		return nil, ErrTerminated
	}
	in, ok := v.(*inner[W, B])
	if !ok || in.tag.terminated() {
		return nil, ErrTerminated
	}
	return &MasterHandle[W, B]{inner: in}, nil
}

// PID returns the referenced actor's identity without resolving it.
func (h WeakHandle[W, B]) PID() PID { return h.pid }

// Submit upgrades and forwards order in one step, satisfying relay's
// weakTarget[B] interface without relay needing to know about MasterHandle
// or the registry at all.
func (h WeakHandle[W, B]) Submit(order B) error {
	master, err := h.Upgrade()
	if err != nil {
		return err
	}
	return master.Submit(order)
}
