package dispatch

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

var pidSeq atomic.Uint64

// PID names a spawned actor. It pairs a monotonic counter, for readable
// ordering in logs, with a uuid so PIDs stay unique across process restarts
// and don't collide once actors are torn down and respawned under test.
type PID struct {
	id  uint64
	uid uuid.UUID
}

// newPID allocates the next PID.
func newPID() PID {
	return PID{id: pidSeq.Add(1), uid: uuid.New()}
}

// String renders the PID for logging and as a registry key.
func (p PID) String() string {
	return fmt.Sprintf("actor-%d-%s", p.id, p.uid)
}
