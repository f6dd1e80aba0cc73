package qkernel

import (
	"time"

	"github.com/google/uuid"
)

// Job is one circuit queued on a Runner.
type Job struct {
	ID         string
	QubitCount int
	Gates      []GateRequest
	StartTime  time.Time

	result chan Outcome
}

// Outcome is the result of a Job. State is nil when Error is set.
type Outcome struct {
	JobID       string
	State       *StateVector
	Error       error
	Duration    time.Duration
	CompletedAt time.Time
}

// JobOption is a function type for configuring jobs
type JobOption func(*Job)

// WithJobID replaces the generated job id.
func WithJobID(id string) JobOption {
	return func(j *Job) {
		j.ID = id
	}
}

func newJob(qubitCount int, gates []GateRequest, opts ...JobOption) Job {
	job := Job{
		ID:         uuid.NewString(),
		QubitCount: qubitCount,
		Gates:      gates,
		StartTime:  time.Now(),
		result:     make(chan Outcome, 1),
	}

	for _, opt := range opts {
		opt(&job)
	}

	return job
}

func (j Job) finish(state *StateVector, err error) {
	j.result <- Outcome{
		JobID:       j.ID,
		State:       state,
		Error:       err,
		Duration:    time.Since(j.StartTime),
		CompletedAt: time.Now(),
	}
	close(j.result)
}
