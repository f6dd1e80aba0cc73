package qkernel

import (
	"context"
	"fmt"
	"time"

	"github.com/theapemachine/errnie"
)

/*
Dispatcher applies gates to a StateVector. It tries the accelerated kernel
when the backend resolved to accelerated mode and falls back to the software
kernel for that call whenever the accelerator fails in any way. Accelerator
failures are logged and counted, never returned: the gate is always applied,
possibly more slowly. Invalid requests are returned to the caller and leave
the state untouched.

Once the accelerated kernel is closed, every call goes straight to the
software kernel without logging; the session already reported the release.

A Dispatcher may be shared by concurrent circuit executions as long as each
owns its StateVector; calls into the accelerator are serialized by the
AcceleratedKernel.
*/
type Dispatcher struct {
	software    GateKernel
	accelerated *AcceleratedKernel
	breaker     *CircuitBreaker
	metrics     *Metrics
}

// NewDispatcher builds a dispatcher over backend. breaker may be nil.
func NewDispatcher(backend *BackendConfiguration, breaker *CircuitBreaker, metrics *Metrics) *Dispatcher {
	if metrics == nil {
		metrics = NewMetrics()
	}

	d := &Dispatcher{
		software: NewSoftwareKernel(),
		breaker:  breaker,
		metrics:  metrics,
	}

	if backend != nil && backend.Mode() == ModeAccelerated && backend.Accelerated() != nil {
		d.accelerated = backend.Accelerated()
	}

	return d
}

// Accelerated reports whether calls try an accelerated kernel first.
func (d *Dispatcher) Accelerated() bool {
	return d.accelerated != nil && !d.accelerated.Closed()
}

func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// ApplyHadamard applies H to targetQubit of state and returns state.
func (d *Dispatcher) ApplyHadamard(ctx context.Context, state *StateVector, targetQubit int) (*StateVector, error) {
	return d.Apply(ctx, state, GateRequest{Gate: Hadamard, Target: targetQubit})
}

/*
Apply validates req against state, computes the new amplitudes on the
accelerated path when possible and on the software path otherwise, and
swaps them into state.
*/
func (d *Dispatcher) Apply(ctx context.Context, state *StateVector, req GateRequest) (*StateVector, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: nil state", ErrInvalidDimension)
	}

	qubitCount := state.QubitCount()
	if err := req.Validate(qubitCount); err != nil {
		d.metrics.recordRejected()
		return nil, err
	}

	startTime := time.Now()
	input := state.Amplitudes()

	result, path := d.accelerate(ctx, input, req, qubitCount)
	if result == nil {
		var err error
		if result, err = d.software.ApplyHadamard(ctx, input, req.Target, qubitCount); err != nil {
			return nil, err
		}
	}

	if err := state.Replace(result); err != nil {
		return nil, err
	}

	d.metrics.recordGate(startTime, path)
	return state, nil
}

/*
Run applies requests to state in order. It stops at the first invalid
request; gates before it stay applied.
*/
func (d *Dispatcher) Run(ctx context.Context, state *StateVector, requests []GateRequest) (*StateVector, error) {
	for i, req := range requests {
		if _, err := d.Apply(ctx, state, req); err != nil {
			return nil, fmt.Errorf("gate %d %s: %w", i, req, err)
		}
	}

	return state, nil
}

// accelerate returns nil when the software kernel has to compute the gate.
func (d *Dispatcher) accelerate(
	ctx context.Context, input []complex128, req GateRequest, qubitCount int,
) ([]complex128, Path) {
	if !d.Accelerated() {
		return nil, PathSoftware
	}

	if !d.breaker.Allow() {
		d.metrics.recordBreakerSkip()
		return nil, PathFallback
	}

	out, err := d.accelerated.ApplyHadamard(ctx, input, req.Target, qubitCount)
	if err == nil && len(out) != len(input) {
		err = &KernelError{
			Kernel: d.accelerated.Name(),
			Cause:  fmt.Errorf("%w: kernel returned %d amplitudes", ErrDimensionMismatch, len(out)),
		}
	}

	if err != nil {
		d.breaker.RecordFailure()
		d.metrics.recordKernelFailure(err)
		errnie.Warn("%s: %v, falling back to software", req, err)
		return nil, PathFallback
	}

	d.breaker.RecordSuccess()
	errnie.Debug("%s: applied by %s", req, d.accelerated.Name())

	return out, PathAccelerated
}
