package qkernel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/theapemachine/errnie"
)

/*
Accelerator is a loaded hardware kernel reachable through the foreign ABI:

	int hadamard_kernel_execute_c(const char *image,
	    const double *in_re, const double *in_im,
	    double *out_re, double *out_im,
	    int target, int num_qubits, int state_size);

Hadamard returns the kernel's status code. A non-nil error means the call
never completed at the boundary, and the status is meaningless. The output
arrays of buffers are only valid when the status is zero and err is nil.
*/
type Accelerator interface {
	Name() string
	Hadamard(imagePath string, buffers *PlanarBuffers, target, qubitCount, stateSize int32) (int32, error)
	Close() error
}

var errKernelPanic = errors.New("panic at call boundary")

type callResult struct {
	status int32
	err    error
}

/*
AcceleratedKernel adapts an Accelerator to the GateKernel interface. It owns
the marshaling into planar buffers and the single slot that serializes
callers on the hardware handle. A call that outlives its context or the configured
timeout is abandoned: the caller gets a KernelError and the buffers of that
call are never read.
*/
type AcceleratedKernel struct {
	accelerator Accelerator
	imagePath   string
	timeout     time.Duration
	slot        chan struct{}
	closed      atomic.Bool
}

// NewAcceleratedKernel wraps accelerator. A zero timeout waits for the
// foreign call for as long as ctx allows.
func NewAcceleratedKernel(accelerator Accelerator, imagePath string, timeout time.Duration) *AcceleratedKernel {
	return &AcceleratedKernel{
		accelerator: accelerator,
		imagePath:   imagePath,
		timeout:     timeout,
		slot:        make(chan struct{}, 1),
	}
}

func (k *AcceleratedKernel) Name() string {
	if k.accelerator == nil {
		return "accelerated"
	}
	return "accelerated:" + k.accelerator.Name()
}

// Closed reports whether Close has released the accelerator.
func (k *AcceleratedKernel) Closed() bool {
	return k.accelerator == nil || k.closed.Load()
}

func (k *AcceleratedKernel) ApplyHadamard(
	ctx context.Context, amplitudes []complex128, target, qubitCount int,
) ([]complex128, error) {
	if err := checkGateShape(amplitudes, target, qubitCount); err != nil {
		return nil, err
	}

	if k.Closed() {
		return nil, k.fail(0, ErrAcceleratorUnavailable)
	}

	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}

	buffers := NewPlanarBuffers(len(amplitudes))
	if err := buffers.Split(amplitudes); err != nil {
		return nil, k.fail(0, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, k.fail(0, err)
	}

	select {
	case k.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, k.fail(0, fmt.Errorf("waiting for accelerator: %w", ctx.Err()))
	}

	done := make(chan callResult, 1)
	go func() {
		defer func() { <-k.slot }()
		done <- k.invoke(buffers, int32(target), int32(qubitCount), int32(len(amplitudes)))
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, k.fail(0, res.err)
		}
		if res.status != 0 {
			return nil, k.fail(res.status, nil)
		}
		return buffers.Join()
	case <-ctx.Done():
		errnie.Warn("kernel %s abandoned after %v, handle stays busy until it returns", k.Name(), ctx.Err())
		return nil, k.fail(0, fmt.Errorf("call abandoned: %w", ctx.Err()))
	}
}

func (k *AcceleratedKernel) invoke(buffers *PlanarBuffers, target, qubitCount, stateSize int32) (res callResult) {
	defer func() {
		if r := recover(); r != nil {
			res = callResult{err: fmt.Errorf("%w: %v", errKernelPanic, r)}
		}
	}()

	status, err := k.accelerator.Hadamard(k.imagePath, buffers, target, qubitCount, stateSize)
	return callResult{status: status, err: err}
}

func (k *AcceleratedKernel) fail(status int32, cause error) error {
	return &KernelError{Kernel: k.Name(), Status: status, Cause: cause}
}

/*
Close waits, at most for wait, for an in-flight call to return and then
releases the accelerator. A handle that is still busy is never released.
*/
func (k *AcceleratedKernel) Close(wait time.Duration) error {
	if k.accelerator == nil {
		return nil
	}

	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case k.slot <- struct{}{}:
	case <-timeout:
		return fmt.Errorf("%w: %s still busy after %v", ErrKernelInvocation, k.Name(), wait)
	}
	defer func() { <-k.slot }()

	if k.closed.Swap(true) {
		return nil
	}

	return k.accelerator.Close()
}
