package eternal

import "errors"

// ErrTerminated is returned by Submit/SubmitMany once Stop has been called
// or the dedicated goroutine has exited.
var ErrTerminated = errors.New("eternal: actor terminated")

// ErrThreadSpawn is returned by Spawn if the dedicated goroutine could not
// be started. Go goroutines don't fail to start the way OS threads can, so
// in practice this is unreachable; it is kept so callers written against
// both dispatch and eternal share one error taxonomy.
var ErrThreadSpawn = errors.New("eternal: thread spawn failed")

// Internal mutex poisoning (spec.md §7's MailboxPoisoned) has no Go
// equivalent — sync.Mutex never leaves a goroutine holding a lock across a
// panic the way a poisoned Rust Mutex would, because runBatch recovers
// locally and marks the actor terminated instead. A weak-reference upgrade
// failure, the other MailboxPoisoned case spec.md names, already surfaces
// as ErrTerminated from dispatch.WeakHandle.Upgrade, so no separate
// sentinel is needed here.
