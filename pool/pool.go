// Package pool implements the thread-pool collaborator described by the
// dispatch package's contract: it accepts a Job value and guarantees exactly
// one invocation of it on some worker goroutine. Nothing upstream of Pool
// knows or cares how workers are scheduled; dispatch.MasterHandle only ever
// calls Submit.
package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Submit once the pool has been shut down.
var ErrClosed = errors.New("pool: closed")

// Job is the uniform unit of work the pool schedules. Run is invoked exactly
// once by some worker goroutine.
type Job interface {
	Run()
}

// Pool is the collaborator contract dispatch.MasterHandle depends on.
type Pool interface {
	Submit(job Job) error
}

// Options configures a WorkerPool.
type Options struct {
	// Workers is the number of goroutines draining the job queue. Defaults
	// to runtime.NumCPU() when <= 0.
	Workers int
	// QueueSize bounds the number of jobs that may be waiting for a free
	// worker before Submit blocks. Defaults to 1024 when <= 0.
	QueueSize int
	// Logger receives diagnostic events (worker panics, shutdown timeouts).
	Logger zerolog.Logger
}

// DefaultOptions returns sane defaults sized to the host.
func DefaultOptions() Options {
	return Options{
		Workers:   runtime.NumCPU(),
		QueueSize: 1024,
	}
}

// WorkerPool is a fixed-size goroutine pool draining a buffered job channel.
type WorkerPool struct {
	jobs   chan Job
	done   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
	log    zerolog.Logger
}

// New starts a WorkerPool with the given options.
func New(opts Options) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	p := &WorkerPool{
		jobs: make(chan Job, opts.QueueSize),
		done: make(chan struct{}),
		log:  opts.Logger,
	}
	p.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.work()
	}
	return p
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.runJob(job)
		}
	}
}

// runJob isolates a single job's panic so one misbehaving actor job never
// takes a worker goroutine down with it.
func (p *WorkerPool) runJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("pool: job panicked")
		}
	}()
	job.Run()
}

// Submit enqueues job for execution on some worker. It blocks only while the
// internal queue is full; it never blocks on the job itself running.
func (p *WorkerPool) Submit(job Job) error {
	if p.closed.Load() {
		return ErrClosed
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.done:
		return ErrClosed
	}
}

// Shutdown stops accepting new jobs and waits, up to ctx's deadline, for
// every worker to finish the job it is running and exit. Jobs still waiting
// in the queue when Shutdown is called may be discarded without running.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.done)

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		p.log.Warn().Msg("pool: shutdown deadline exceeded, workers still draining")
		return ctx.Err()
	}
}

// ShutdownTimeout is a convenience wrapper around Shutdown for callers that
// don't need their own context.
func (p *WorkerPool) ShutdownTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.Shutdown(ctx)
}
