package relay_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lguibr/toiler/dispatch"
	"github.com/lguibr/toiler/pool"
	"github.com/lguibr/toiler/relay"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// consumerOrder is the order type a test "consumer" actor receives: either
// a committed reply or a cancellation, wrapping relay's generic envelopes
// the way a real order enum would.
type consumerOrder struct {
	reply  *relay.Envelope[string, int]
	cancel *relay.CancelEnvelope[int]
}

type consumerWorld struct {
	mu       sync.Mutex
	replies  []relay.Envelope[string, int]
	cancels  []relay.CancelEnvelope[int]
	notifyCh chan struct{}
}

type consumerBehavior struct{}

func (consumerBehavior) Receive(job *dispatch.JobHandle[consumerWorld, consumerOrder]) {
	w := job.World()
	for order, ok := job.Next(); ok; order, ok = job.Next() {
		w.mu.Lock()
		switch {
		case order.reply != nil:
			w.replies = append(w.replies, *order.reply)
		case order.cancel != nil:
			w.cancels = append(w.cancels, *order.cancel)
		}
		w.mu.Unlock()
		select {
		case w.notifyCh <- struct{}{}:
		default:
		}
	}
}

func spawnConsumer(t *testing.T, p *pool.WorkerPool) (*dispatch.MasterHandle[consumerWorld, consumerOrder], *consumerWorld) {
	t.Helper()
	world := &consumerWorld{notifyCh: make(chan struct{}, 16)}
	master, err := dispatch.NewConstructor[consumerWorld, consumerOrder](world, consumerBehavior{}).
		WithPool(p).
		Spawn()
	require.NoError(t, err)
	return master, world
}

func replyEnvelope(e relay.Envelope[string, int]) consumerOrder {
	return consumerOrder{reply: &e}
}

func cancelEnvelope(c relay.CancelEnvelope[int]) consumerOrder {
	return consumerOrder{cancel: &c}
}

func TestReplyHandleCommitDeliversEnvelope(t *testing.T) {
	p := pool.New(pool.Options{Workers: 4, QueueSize: 32})
	t.Cleanup(func() { _ = p.ShutdownTimeout(time.Second) })

	master, world := spawnConsumer(t, p)
	t.Cleanup(master.Finish)

	transmitter := relay.NewTransmitter[consumerOrder](master.Weak())
	handle := relay.NewReplyHandle[consumerOrder, string, int](transmitter, 42, replyEnvelope, cancelEnvelope)

	require.NoError(t, handle.Commit("hello"))

	select {
	case <-world.notifyCh:
	case <-time.After(time.Second):
		t.Fatal("consumer never received the reply")
	}

	world.mu.Lock()
	defer world.mu.Unlock()
	require.Len(t, world.replies, 1)
	assert.Equal(t, "hello", world.replies[0].Content)
	assert.Equal(t, 42, world.replies[0].Stamp)
}

func TestReplyHandleCommitTwiceFails(t *testing.T) {
	p := pool.New(pool.Options{Workers: 4, QueueSize: 32})
	t.Cleanup(func() { _ = p.ShutdownTimeout(time.Second) })

	master, _ := spawnConsumer(t, p)
	t.Cleanup(master.Finish)

	transmitter := relay.NewTransmitter[consumerOrder](master.Weak())
	handle := relay.NewReplyHandle[consumerOrder, string, int](transmitter, 1, replyEnvelope, cancelEnvelope)

	require.NoError(t, handle.Commit("first"))
	assert.ErrorIs(t, handle.Commit("second"), relay.ErrAlreadyCommitted)
}

func TestReplyHandleReleaseAfterCommitIsNoop(t *testing.T) {
	p := pool.New(pool.Options{Workers: 4, QueueSize: 32})
	t.Cleanup(func() { _ = p.ShutdownTimeout(time.Second) })

	master, world := spawnConsumer(t, p)
	t.Cleanup(master.Finish)

	transmitter := relay.NewTransmitter[consumerOrder](master.Weak())
	handle := relay.NewReplyHandle[consumerOrder, string, int](transmitter, 7, replyEnvelope, cancelEnvelope)

	require.NoError(t, handle.Commit("value"))
	assert.NoError(t, handle.Release())

	select {
	case <-world.notifyCh:
	case <-time.After(time.Second):
		t.Fatal("consumer never received the reply")
	}

	world.mu.Lock()
	defer world.mu.Unlock()
	assert.Len(t, world.cancels, 0)
	assert.Len(t, world.replies, 1)
}
