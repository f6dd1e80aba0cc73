package qkernel

import (
	"fmt"
	"math/bits"
)

// MaxQubits bounds the register size so the state size always fits the
// signed 32-bit argument of the accelerator ABI.
const MaxQubits = 24

/*
StateVector holds the 2^n complex amplitudes of an n-qubit register.
It has no knowledge of kernels or hardware; the dispatcher reads it through
Amplitudes and writes it back through Replace, once per gate.

A StateVector is not safe for concurrent use. Every circuit execution owns
its own instance.
*/
type StateVector struct {
	qubitCount int
	amplitudes []complex128
}

// NewStateVector returns the |0…0⟩ basis state for qubitCount qubits.
func NewStateVector(qubitCount int) (*StateVector, error) {
	if qubitCount < 1 || qubitCount > MaxQubits {
		return nil, fmt.Errorf("%w: qubit count %d not in [1, %d]", ErrInvalidDimension, qubitCount, MaxQubits)
	}

	amplitudes := make([]complex128, 1<<qubitCount)
	amplitudes[0] = 1

	return &StateVector{
		qubitCount: qubitCount,
		amplitudes: amplitudes,
	}, nil
}

/*
NewStateVectorFrom builds a state from a copy of the given amplitudes. The
length must be a power of two describing at least one qubit. The buffer is
not normalized or checked for unitarity.
*/
func NewStateVectorFrom(amplitudes []complex128) (*StateVector, error) {
	n := len(amplitudes)
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: %d amplitudes is not a power of two >= 2", ErrInvalidDimension, n)
	}

	qubitCount := bits.TrailingZeros(uint(n))
	if qubitCount > MaxQubits {
		return nil, fmt.Errorf("%w: %d qubits exceeds %d", ErrInvalidDimension, qubitCount, MaxQubits)
	}

	buf := make([]complex128, n)
	copy(buf, amplitudes)

	return &StateVector{
		qubitCount: qubitCount,
		amplitudes: buf,
	}, nil
}

func (sv *StateVector) QubitCount() int {
	return sv.qubitCount
}

// Len is the number of amplitudes, 2^QubitCount.
func (sv *StateVector) Len() int {
	return len(sv.amplitudes)
}

// Amplitudes returns a copy of the current buffer.
func (sv *StateVector) Amplitudes() []complex128 {
	out := make([]complex128, len(sv.amplitudes))
	copy(out, sv.amplitudes)
	return out
}

// Amplitude returns the amplitude of basis state i.
func (sv *StateVector) Amplitude(i int) complex128 {
	return sv.amplitudes[i]
}

/*
Replace swaps the internal buffer for newAmplitudes. The state keeps its
own copy, so the caller may reuse the slice afterwards. A length mismatch
leaves the state untouched.
*/
func (sv *StateVector) Replace(newAmplitudes []complex128) error {
	if len(newAmplitudes) != len(sv.amplitudes) {
		return fmt.Errorf(
			"%w: got %d amplitudes, state holds %d",
			ErrDimensionMismatch, len(newAmplitudes), len(sv.amplitudes),
		)
	}

	buf := make([]complex128, len(newAmplitudes))
	copy(buf, newAmplitudes)
	sv.amplitudes = buf

	return nil
}

// Norm is the sum of squared magnitudes, 1 for any normalized state.
func (sv *StateVector) Norm() float64 {
	var total float64
	for _, a := range sv.amplitudes {
		total += real(a)*real(a) + imag(a)*imag(a)
	}
	return total
}

func (sv *StateVector) Clone() *StateVector {
	return &StateVector{
		qubitCount: sv.qubitCount,
		amplitudes: sv.Amplitudes(),
	}
}
