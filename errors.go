package qkernel

import (
	"errors"
	"fmt"
)

// Caller-input errors. These are fatal to the call that produced them and are
// always returned to the caller.
var (
	// ErrInvalidDimension is returned when a register is requested with fewer
	// than one qubit, more than MaxQubits, or from a buffer whose length is not
	// a power of two.
	ErrInvalidDimension = errors.New("qkernel: invalid dimension")

	// ErrDimensionMismatch is returned when a replacement buffer does not have
	// the same length as the state it replaces.
	ErrDimensionMismatch = errors.New("qkernel: dimension mismatch")

	// ErrInvalidQubitIndex is returned when a gate targets a qubit outside
	// [0, qubitCount).
	ErrInvalidQubitIndex = errors.New("qkernel: invalid qubit index")

	// ErrUnknownGate is returned for gate kinds the dispatcher cannot apply.
	ErrUnknownGate = errors.New("qkernel: unknown gate")

	// ErrSessionClosed is returned when a session is used after Close.
	ErrSessionClosed = errors.New("qkernel: session closed")

	// ErrRunnerClosed is returned for jobs submitted to, or still queued in,
	// a closed Runner.
	ErrRunnerClosed = errors.New("qkernel: runner closed")
)

// Accelerator errors. The dispatcher absorbs these and falls back to the
// software kernel; they only surface through logs, metrics and BackendInfo.
var (
	// ErrAcceleratorUnavailable means the accelerator image or kernel library
	// could not be resolved or loaded. It downgrades the whole session.
	ErrAcceleratorUnavailable = errors.New("qkernel: accelerator unavailable")

	// ErrKernelInvocation means a single accelerated call failed, either with a
	// nonzero status or at the call boundary.
	ErrKernelInvocation = errors.New("qkernel: kernel invocation failed")
)

/*
KernelError describes one failed accelerated call. Status holds the code the
kernel returned, or zero when the call never produced one (panic, timeout,
missing handle), in which case Cause explains what happened instead.
*/
type KernelError struct {
	Kernel string
	Status int32
	Cause  error
}

func (e *KernelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", ErrKernelInvocation, e.Kernel, e.Cause)
	}

	return fmt.Sprintf("%s: %s returned status %d", ErrKernelInvocation, e.Kernel, e.Status)
}

func (e *KernelError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrKernelInvocation, e.Cause}
	}

	return []error{ErrKernelInvocation}
}
