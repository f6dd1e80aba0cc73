package qkernel

import (
	"context"

	"github.com/theapemachine/errnie"
)

// Worker executes queued circuits one at a time. Each circuit gets its own
// StateVector; only the session's dispatcher is shared.
type Worker struct {
	id     int
	runner *Runner
}

func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.runner.jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	state, err := w.runner.session.Execute(ctx, job.QubitCount, job.Gates)
	if err != nil {
		errnie.Warn("worker %d: job %s failed: %v", w.id, job.ID, err)
	}

	job.finish(state, err)
}
