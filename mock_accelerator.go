package qkernel

import (
	"errors"
	"sync/atomic"
	"time"
)

/*
MockAccelerator is a CPU-backed Accelerator for development and tests. It
computes the Hadamard directly on the planar real/imaginary arrays, the way
the hardware kernel sees them, so comparing it with SoftwareKernel checks
the marshaling as well as the arithmetic.

Status, Fault and Delay let tests inject the failures a real device can
produce. Setting Panic makes the call panic at the boundary.
*/
type MockAccelerator struct {
	Status int32
	Fault  error
	Delay  time.Duration
	Panic  bool

	calls  atomic.Int64
	closed atomic.Bool
}

func NewMockAccelerator() *MockAccelerator {
	return &MockAccelerator{}
}

func (m *MockAccelerator) Name() string {
	return "mock"
}

func (m *MockAccelerator) Hadamard(
	imagePath string, buffers *PlanarBuffers, target, qubitCount, stateSize int32,
) (int32, error) {
	m.calls.Add(1)

	if m.closed.Load() {
		return 0, errors.New("mock accelerator: closed")
	}

	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	if m.Panic {
		panic("mock accelerator: injected fault")
	}

	if m.Fault != nil {
		return 0, m.Fault
	}

	if m.Status != 0 {
		// Scribble over the outputs to show they are never read on failure.
		for i := range buffers.OutReal {
			buffers.OutReal[i] = -1
			buffers.OutImag[i] = -1
		}
		return m.Status, nil
	}

	if int(stateSize) != buffers.Len() || stateSize != 1<<qubitCount {
		return 2, nil
	}

	bit := 1 << target
	for i := 0; i < int(stateSize); i++ {
		j := i ^ bit
		if i > j {
			continue
		}

		re0, im0 := buffers.InReal[i], buffers.InImag[i]
		re1, im1 := buffers.InReal[j], buffers.InImag[j]

		buffers.OutReal[i] = invSqrt2 * (re0 + re1)
		buffers.OutImag[i] = invSqrt2 * (im0 + im1)
		buffers.OutReal[j] = invSqrt2 * (re0 - re1)
		buffers.OutImag[j] = invSqrt2 * (im0 - im1)
	}

	return 0, nil
}

// Calls reports how many times the kernel was invoked.
func (m *MockAccelerator) Calls() int64 {
	return m.calls.Load()
}

func (m *MockAccelerator) Close() error {
	m.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called.
func (m *MockAccelerator) Closed() bool {
	return m.closed.Load()
}
