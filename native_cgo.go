//go:build cgo

package qkernel

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef int (*qk_hadamard_fn)(const char *, const double *, const double *,
                              double *, double *, int, int, int);

static void *qk_open(const char *path) {
	return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}

static void *qk_symbol(void *handle, const char *name) {
	dlerror();
	return dlsym(handle, name);
}

static const char *qk_error(void) {
	return dlerror();
}

static int qk_close(void *handle) {
	return dlclose(handle);
}

static int qk_call_hadamard(void *fn, const char *image,
                            const double *in_re, const double *in_im,
                            double *out_re, double *out_im,
                            int target, int num_qubits, int state_size) {
	return ((qk_hadamard_fn)fn)(image, in_re, in_im, out_re, out_im,
	                            target, num_qubits, state_size);
}
*/
import "C"

import (
	"fmt"
	"path/filepath"
	"unsafe"

	"github.com/theapemachine/errnie"
)

/*
NativeKernel is an Accelerator backed by a shared library loaded with dlopen.
The library must export a function with the accelerator ABI under the
configured symbol name.
*/
type NativeKernel struct {
	path   string
	symbol string
	handle unsafe.Pointer
	fn     unsafe.Pointer
}

// OpenNativeKernel loads libraryPath and resolves symbol in it.
func OpenNativeKernel(libraryPath, symbol string) (*NativeKernel, error) {
	cPath := C.CString(libraryPath)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.qk_open(cPath)
	if handle == nil {
		return nil, fmt.Errorf("%w: dlopen %s: %s", ErrAcceleratorUnavailable, libraryPath, dlError())
	}

	cSymbol := C.CString(symbol)
	defer C.free(unsafe.Pointer(cSymbol))

	fn := C.qk_symbol(handle, cSymbol)
	if fn == nil {
		msg := dlError()
		C.qk_close(handle)
		return nil, fmt.Errorf("%w: dlsym %s in %s: %s", ErrAcceleratorUnavailable, symbol, libraryPath, msg)
	}

	errnie.Info("loaded kernel library %s (symbol %s)", libraryPath, symbol)

	return &NativeKernel{
		path:   libraryPath,
		symbol: symbol,
		handle: handle,
		fn:     fn,
	}, nil
}

func (k *NativeKernel) Name() string {
	return filepath.Base(k.path)
}

func (k *NativeKernel) Hadamard(
	imagePath string, buffers *PlanarBuffers, target, qubitCount, stateSize int32,
) (int32, error) {
	if k.fn == nil {
		return 0, fmt.Errorf("%w: %s is closed", ErrAcceleratorUnavailable, k.path)
	}

	if stateSize < 1 || int(stateSize) != buffers.Len() ||
		len(buffers.InImag) != buffers.Len() ||
		len(buffers.OutReal) != buffers.Len() ||
		len(buffers.OutImag) != buffers.Len() {
		return 0, fmt.Errorf("%w: planar buffers do not hold %d elements", ErrDimensionMismatch, stateSize)
	}

	cImage := C.CString(imagePath)
	defer C.free(unsafe.Pointer(cImage))

	status := C.qk_call_hadamard(
		k.fn,
		cImage,
		(*C.double)(unsafe.Pointer(&buffers.InReal[0])),
		(*C.double)(unsafe.Pointer(&buffers.InImag[0])),
		(*C.double)(unsafe.Pointer(&buffers.OutReal[0])),
		(*C.double)(unsafe.Pointer(&buffers.OutImag[0])),
		C.int(target),
		C.int(qubitCount),
		C.int(stateSize),
	)

	return int32(status), nil
}

func (k *NativeKernel) Close() error {
	if k.handle == nil {
		return nil
	}

	rc := C.qk_close(k.handle)
	k.handle = nil
	k.fn = nil

	if rc != 0 {
		return fmt.Errorf("dlclose %s: %s", k.path, dlError())
	}

	return nil
}

func dlError() string {
	msg := C.qk_error()
	if msg == nil {
		return "unknown error"
	}
	return C.GoString(msg)
}
