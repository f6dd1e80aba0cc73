package qkernel

import (
	"math"
	"math/cmplx"
	"math/rand"
	"sync/atomic"
)

const tolerance = 1e-9

func maxDiff(a, b []complex128) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	var worst float64
	for i := range a {
		if d := cmplx.Abs(a[i] - b[i]); d > worst {
			worst = d
		}
	}
	return worst
}

func norm(amplitudes []complex128) float64 {
	var total float64
	for _, a := range amplitudes {
		total += real(a)*real(a) + imag(a)*imag(a)
	}
	return total
}

// randomState returns a normalized random state on qubitCount qubits.
func randomState(rng *rand.Rand, qubitCount int) []complex128 {
	amplitudes := make([]complex128, 1<<qubitCount)
	for i := range amplitudes {
		amplitudes[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}

	scale := complex(1/math.Sqrt(norm(amplitudes)), 0)
	for i := range amplitudes {
		amplitudes[i] *= scale
	}
	return amplitudes
}

// trackingAccelerator records the highest number of overlapping calls.
type trackingAccelerator struct {
	*MockAccelerator
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (t *trackingAccelerator) Hadamard(
	imagePath string, buffers *PlanarBuffers, target, qubitCount, stateSize int32,
) (int32, error) {
	n := t.inFlight.Add(1)
	defer t.inFlight.Add(-1)

	for {
		peak := t.peak.Load()
		if n <= peak || t.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	return t.MockAccelerator.Hadamard(imagePath, buffers, target, qubitCount, stateSize)
}
