package pool_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lguibr/toiler/pool"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingJob struct {
	counter *atomic.Int64
	done    chan struct{}
}

func (j countingJob) Run() {
	j.counter.Add(1)
	close(j.done)
}

func TestWorkerPoolRunsEverySubmittedJob(t *testing.T) {
	p := pool.New(pool.Options{Workers: 4, QueueSize: 16})
	defer func() { _ = p.ShutdownTimeout(time.Second) }()

	var counter atomic.Int64
	const n = 20
	doneChans := make([]chan struct{}, n)
	for i := range doneChans {
		doneChans[i] = make(chan struct{})
		require.NoError(t, p.Submit(countingJob{counter: &counter, done: doneChans[i]}))
	}
	for _, d := range doneChans {
		select {
		case <-d:
		case <-time.After(time.Second):
			t.Fatal("job never ran")
		}
	}
	assert.EqualValues(t, n, counter.Load())
}

type panicJob struct{ done chan struct{} }

func (j panicJob) Run() {
	defer close(j.done)
	panic("boom")
}

func TestWorkerPoolSurvivesAPanickingJob(t *testing.T) {
	p := pool.New(pool.Options{Workers: 2, QueueSize: 8})
	defer func() { _ = p.ShutdownTimeout(time.Second) }()

	done := make(chan struct{})
	require.NoError(t, p.Submit(panicJob{done: done}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panicking job never ran")
	}

	var counter atomic.Int64
	followUp := make(chan struct{})
	require.NoError(t, p.Submit(countingJob{counter: &counter, done: followUp}))
	select {
	case <-followUp:
	case <-time.After(time.Second):
		t.Fatal("pool stopped scheduling after a panic")
	}
	assert.EqualValues(t, 1, counter.Load())
}

func TestWorkerPoolSubmitAfterShutdownFails(t *testing.T) {
	p := pool.New(pool.Options{Workers: 2, QueueSize: 8})
	require.NoError(t, p.Shutdown(context.Background()))

	var counter atomic.Int64
	done := make(chan struct{})
	err := p.Submit(countingJob{counter: &counter, done: done})
	assert.ErrorIs(t, err, pool.ErrClosed)
}
