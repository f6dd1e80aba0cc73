//go:build !cgo

package qkernel

import "fmt"

// NativeKernel is unavailable without cgo; every build still runs on the
// software kernel.
type NativeKernel struct{}

// OpenNativeKernel always fails when cgo is disabled.
func OpenNativeKernel(libraryPath, symbol string) (*NativeKernel, error) {
	return nil, fmt.Errorf("%w: %s requires cgo", ErrAcceleratorUnavailable, libraryPath)
}

func (k *NativeKernel) Name() string {
	return "native"
}

func (k *NativeKernel) Hadamard(
	imagePath string, buffers *PlanarBuffers, target, qubitCount, stateSize int32,
) (int32, error) {
	return 0, fmt.Errorf("%w: built without cgo", ErrAcceleratorUnavailable)
}

func (k *NativeKernel) Close() error {
	return nil
}
