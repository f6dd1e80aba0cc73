package qkernel

import (
	"context"
	"sync"

	"github.com/theapemachine/errnie"
)

/*
Runner executes independent circuits concurrently on a fixed set of
workers that share one Session. Circuits never share a StateVector, and
accelerated calls still go through the session's single accelerator slot,
so the device sees at most one kernel invocation at a time.
*/
type Runner struct {
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
	jobs       chan Job
	session    *Session
	workerList []*Worker
}

// NewRunner starts workers goroutines. Fewer than one worker means one.
func NewRunner(ctx context.Context, session *Session, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &Runner{
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(chan Job, workers*10),
		session:    session,
		workerList: make([]*Worker, 0, workers),
	}

	for i := 0; i < workers; i++ {
		r.startWorker(i)
	}

	go r.watch()

	errnie.Info("runner started with %d workers", workers)
	return r
}

/*
Submit queues a circuit of qubitCount qubits and returns a channel that
receives exactly one Outcome.
*/
func (r *Runner) Submit(qubitCount int, gates []GateRequest, opts ...JobOption) <-chan Outcome {
	job := newJob(qubitCount, gates, opts...)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed || r.ctx.Err() != nil {
		job.finish(nil, ErrRunnerClosed)
		return job.result
	}

	select {
	case r.jobs <- job:
	case <-r.ctx.Done():
		job.finish(nil, ErrRunnerClosed)
	}

	return job.result
}

func (r *Runner) startWorker(id int) {
	worker := &Worker{
		id:     id,
		runner: r,
	}
	r.workerList = append(r.workerList, worker)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		worker.run(r.ctx)
	}()
}

// watch closes the runner once its context ends, so jobs queued after the
// parent context was cancelled still receive their Outcome.
func (r *Runner) watch() {
	<-r.ctx.Done()
	r.Close()
}

// Close stops the workers and fails every job still queued with
// ErrRunnerClosed. It does not close the session.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	r.cancel()
	r.wg.Wait()
	close(r.jobs)

	for job := range r.jobs {
		job.finish(nil, ErrRunnerClosed)
	}

	r.workerList = nil
	errnie.Info("runner closed")
}
