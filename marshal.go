package qkernel

import "fmt"

/*
PlanarBuffers is the memory layout the accelerator ABI expects: four
contiguous float64 arrays of exactly stateSize elements, real and imaginary
parts split, index order preserved. The buffers are allocated per call and
are never shared between calls, so an abandoned call can not leak partial
output into a later one.
*/
type PlanarBuffers struct {
	InReal  []float64
	InImag  []float64
	OutReal []float64
	OutImag []float64
}

// NewPlanarBuffers allocates all four arrays with stateSize elements.
func NewPlanarBuffers(stateSize int) *PlanarBuffers {
	return &PlanarBuffers{
		InReal:  make([]float64, stateSize),
		InImag:  make([]float64, stateSize),
		OutReal: make([]float64, stateSize),
		OutImag: make([]float64, stateSize),
	}
}

func (p *PlanarBuffers) Len() int {
	return len(p.InReal)
}

// Split writes amplitudes into the input arrays.
func (p *PlanarBuffers) Split(amplitudes []complex128) error {
	if len(amplitudes) != p.Len() {
		return fmt.Errorf("%w: marshal %d amplitudes into %d slots", ErrDimensionMismatch, len(amplitudes), p.Len())
	}

	for i, a := range amplitudes {
		p.InReal[i] = real(a)
		p.InImag[i] = imag(a)
	}

	return nil
}

// Join reads the output arrays back into a fresh complex buffer. Only call
// it after the kernel reported success.
func (p *PlanarBuffers) Join() ([]complex128, error) {
	if len(p.OutReal) != len(p.OutImag) {
		return nil, fmt.Errorf("%w: output real %d, imag %d", ErrDimensionMismatch, len(p.OutReal), len(p.OutImag))
	}

	out := make([]complex128, len(p.OutReal))
	for i := range out {
		out[i] = complex(p.OutReal[i], p.OutImag[i])
	}

	return out, nil
}
