// Package dispatch implements the pool-scheduled actor: a mailbox plus a
// single-word activity tag (see tag.go) that guarantees at most one job runs
// per actor at a time (I4), while letting any number of producers submit
// concurrently (I1). Actual execution is handed off to a pool.Pool
// collaborator; dispatch never runs user code on its own goroutine.
package dispatch

import (
	"github.com/rs/zerolog"

	"github.com/lguibr/toiler/pool"
)

// defaultMaxBatch bounds how many orders a single Serve pass drains before
// checking whether to loop again, so one Submit flood can't hold a worker
// goroutine hostage indefinitely between rearm checks.
const defaultMaxBatch = 256

// Behavior is user code reacting to orders delivered to a pool-scheduled
// actor. Receive is called once per Serve pass with a cursor over every
// order drained in that pass; Behavior pulls from it with JobHandle.Next
// until exhausted, matching the batch-iteration shape the runtime drains
// orders in.
type Behavior[W, B any] interface {
	Receive(job *JobHandle[W, B])
}

// inner is the actor's live state: everything a MasterHandle, a
// WeakHandle, and the running dispatchJob all share. It outlives individual
// handles but not the actor itself — Finish removes it from the registry so
// nothing can resurrect it.
type inner[W, B any] struct {
	pid      PID
	world    *W
	behavior Behavior[W, B]
	mailbox  *mpscQueue[B]
	tag      tagWord
	pool     pool.Pool
	log      zerolog.Logger
	maxBatch int
}

// ConstructorHandle builds a pool-scheduled actor before it is spawned: a
// value you configure then consume exactly once via Spawn.
type ConstructorHandle[W, B any] struct {
	world    *W
	behavior Behavior[W, B]
	pool     pool.Pool
	log      zerolog.Logger
	maxBatch int
}

// NewConstructor begins building an actor around world, reacting to orders
// with behavior.
func NewConstructor[W, B any](world *W, behavior Behavior[W, B]) *ConstructorHandle[W, B] {
	return &ConstructorHandle[W, B]{
		world:    world,
		behavior: behavior,
		maxBatch: defaultMaxBatch,
	}
}

// WithPool sets the thread-pool collaborator the actor's jobs are
// submitted to. Required before Spawn.
func (c *ConstructorHandle[W, B]) WithPool(p pool.Pool) *ConstructorHandle[W, B] {
	c.pool = p
	return c
}

// WithLogger attaches structured logging to the actor's lifecycle events.
func (c *ConstructorHandle[W, B]) WithLogger(l zerolog.Logger) *ConstructorHandle[W, B] {
	c.log = l
	return c
}

// WithMaxBatch overrides how many orders a single Serve pass drains before
// rechecking the activity tag.
func (c *ConstructorHandle[W, B]) WithMaxBatch(n int) *ConstructorHandle[W, B] {
	if n > 0 {
		c.maxBatch = n
	}
	return c
}

// Spawn consumes the ConstructorHandle and returns a live MasterHandle. The
// actor starts resting; it runs no job until the first Submit.
func (c *ConstructorHandle[W, B]) Spawn() (*MasterHandle[W, B], error) {
	if c.pool == nil {
		return nil, ErrSpawnFailure
	}
	in := &inner[W, B]{
		pid:      newPID(),
		world:    c.world,
		behavior: c.behavior,
		mailbox:  newMPSCQueue[B](),
		pool:     c.pool,
		log:      c.log,
		maxBatch: c.maxBatch,
	}
	registryStore(in.pid, in)
	in.log.Debug().Str("actor_id", in.pid.String()).Msg("dispatch: actor spawned")
	return &MasterHandle[W, B]{inner: in}, nil
}

// MasterHandle is the strong, owning reference to a spawned actor.
type MasterHandle[W, B any] struct {
	inner *inner[W, B]
}

// PID returns the actor's identity.
func (m *MasterHandle[W, B]) PID() PID { return m.inner.pid }

// Weak returns a non-owning reference that re-resolves through the
// registry on every use instead of keeping the actor's world alive.
func (m *MasterHandle[W, B]) Weak() WeakHandle[W, B] {
	return WeakHandle[W, B]{pid: m.inner.pid}
}

// Submit enqueues a single order, arming a pool job if the actor was
// resting. Returns ErrTerminated if the actor has already finished.
func (m *MasterHandle[W, B]) Submit(order B) error {
	return m.inner.submit(order)
}

// SubmitMany enqueues every order as a single activity-tag transition, so a
// burst of producers racing SubmitMany only ever schedules one job per
// burst rather than one per order.
func (m *MasterHandle[W, B]) SubmitMany(orders []B) error {
	return m.inner.submitMany(orders)
}

// Finish terminates the actor. Already-queued orders that never got drained
// are simply dropped; no further Submit succeeds afterward.
func (m *MasterHandle[W, B]) Finish() {
	m.inner.finish()
}

func (in *inner[W, B]) submit(order B) error {
	return in.submitMany([]B{order})
}

func (in *inner[W, B]) submitMany(orders []B) error {
	if len(orders) == 0 {
		return nil
	}
	if in.tag.terminated() {
		return ErrTerminated
	}
	// Reserve the count against the tag before a single order is pushed, so
	// a job already draining this mailbox can never observe more items than
	// the tag accounts for: mailbox.pop's spin-for-next covers the narrow
	// gap between this CAS and the push actually landing, but rearm's
	// bookkeeping depends on the CAS having happened first.
	mustSchedule, terminated := in.tag.arm(uint64(len(orders)))
	if terminated {
		return ErrTerminated
	}
	for _, o := range orders {
		in.mailbox.push(o)
	}
	if mustSchedule {
		job := &dispatchJob[W, B]{inner: in}
		if err := in.pool.Submit(job); err != nil {
			in.log.Warn().Str("actor_id", in.pid.String()).Err(err).Msg("dispatch: pool submit failed")
			in.tag.terminate()
			registryDelete(in.pid)
			return ErrSpawnFailure
		}
	}
	return nil
}

func (in *inner[W, B]) finish() {
	in.tag.terminate()
	registryDelete(in.pid)
	in.log.Debug().Str("actor_id", in.pid.String()).Msg("dispatch: actor finished")
}

// JobHandle is the view a Behavior gets into its world and the cursor over
// the orders drained for this Serve pass.
type JobHandle[W, B any] struct {
	world *W
	batch *Batch[B]
	inner *inner[W, B]
}

// World returns the actor's private state for mutation.
func (j *JobHandle[W, B]) World() *W { return j.world }

// Next returns the next drained order, or ok=false once this pass's batch
// is exhausted.
func (j *JobHandle[W, B]) Next() (B, bool) {
	return j.batch.Next()
}

// Finish lets a Behavior terminate its own actor from within Receive.
func (j *JobHandle[W, B]) Finish() {
	j.inner.finish()
}

// PID returns the actor's identity, for logging from within Receive.
func (j *JobHandle[W, B]) PID() PID { return j.inner.pid }

// dispatchJob is the pool.Job submitted for a pool-scheduled actor. Running
// it drains and processes batches, within a single pool invocation, until
// the activity tag says Rest.
type dispatchJob[W, B any] struct {
	inner *inner[W, B]
}

// Run implements pool.Job.
func (d *dispatchJob[W, B]) Run() {
	in := d.inner
	defer func() {
		if r := recover(); r != nil {
			in.log.Error().Str("actor_id", in.pid.String()).Interface("panic", r).Msg("dispatch: behavior panicked, terminating actor")
			in.finish()
		}
	}()

	for {
		if in.tag.terminated() {
			return
		}
		batch := in.mailbox.drain(in.maxBatch)
		if batch.Len() == 0 {
			// Nothing to drain yet even though we were scheduled: another
			// goroutine's push is still between its tail swap and next
			// pointer publish. Treat as zero drained and recheck the tag;
			// the producer's own arm() already accounted for the order.
			verdict := in.tag.rearm(0)
			if verdict == VerdictRest {
				return
			}
			continue
		}
		job := &JobHandle[W, B]{world: in.world, batch: batch, inner: in}
		in.behavior.Receive(job)
		if in.tag.terminated() {
			return
		}
		if in.tag.rearm(uint64(batch.Len())) == VerdictRest {
			return
		}
	}
}
