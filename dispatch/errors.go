package dispatch

import "errors"

// ErrTerminated is returned by Submit/SubmitMany once an actor has finished
// and will never process another order.
var ErrTerminated = errors.New("dispatch: actor terminated")

// ErrSpawnFailure is returned by Spawn when no pool collaborator was set,
// and by Submit/SubmitMany when the pool refuses the job armed for the
// actor (the actor is terminated in that case).
var ErrSpawnFailure = errors.New("dispatch: spawn failed")
