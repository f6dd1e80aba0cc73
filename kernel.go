package qkernel

import (
	"context"
	"fmt"
	"math"
)

/*
GateKernel is one way of computing a gate on a complex amplitude buffer.
Implementations must not modify amplitudes; they return a new buffer of the
same length. The two variants are SoftwareKernel, which always works, and
AcceleratedKernel, which may fail and is therefore guarded by the
dispatcher.
*/
type GateKernel interface {
	Name() string
	ApplyHadamard(ctx context.Context, amplitudes []complex128, target, qubitCount int) ([]complex128, error)
}

var invSqrt2 = 1 / math.Sqrt2

// SoftwareKernel is the reference implementation. It runs in Go on the
// complex buffer directly.
type SoftwareKernel struct{}

func NewSoftwareKernel() *SoftwareKernel {
	return &SoftwareKernel{}
}

func (k *SoftwareKernel) Name() string {
	return "software"
}

/*
ApplyHadamard applies H to the target qubit. Every index i with the target
bit clear is paired with j = i | bit; each pair is visited once, from its
smaller index, and mixed as

	new[i] = (a[i] + a[j]) / √2
	new[j] = (a[i] - a[j]) / √2
*/
func (k *SoftwareKernel) ApplyHadamard(
	ctx context.Context, amplitudes []complex128, target, qubitCount int,
) ([]complex128, error) {
	if err := checkGateShape(amplitudes, target, qubitCount); err != nil {
		return nil, err
	}

	return hadamard(amplitudes, target), nil
}

func hadamard(amplitudes []complex128, target int) []complex128 {
	result := make([]complex128, len(amplitudes))
	copy(result, amplitudes)

	bit := 1 << target
	scale := complex(invSqrt2, 0)

	for i := range result {
		j := i | bit
		if i >= j {
			continue
		}

		a0, a1 := amplitudes[i], amplitudes[j]
		result[i] = scale * (a0 + a1)
		result[j] = scale * (a0 - a1)
	}

	return result
}

func checkGateShape(amplitudes []complex128, target, qubitCount int) error {
	if qubitCount < 1 || qubitCount > MaxQubits {
		return fmt.Errorf("%w: qubit count %d not in [1, %d]", ErrInvalidDimension, qubitCount, MaxQubits)
	}

	if target < 0 || target >= qubitCount {
		return fmt.Errorf("%w: target %d not in [0, %d)", ErrInvalidQubitIndex, target, qubitCount)
	}

	if len(amplitudes) != 1<<qubitCount {
		return fmt.Errorf(
			"%w: %d amplitudes for %d qubits",
			ErrDimensionMismatch, len(amplitudes), qubitCount,
		)
	}

	return nil
}
