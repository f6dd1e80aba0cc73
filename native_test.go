package qkernel

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestOpenNativeKernelMissingLibrary(t *testing.T) {
	Convey("Given a kernel library path that does not exist", t, func() {
		kernel, err := OpenNativeKernel("/nonexistent/libqkernel_missing.so", "hadamard_kernel_execute_c")

		Convey("Then the accelerator is unavailable", func() {
			So(kernel, ShouldBeNil)
			So(errors.Is(err, ErrAcceleratorUnavailable), ShouldBeTrue)
		})
	})
}

func TestBackendDefaultLoader(t *testing.T) {
	Convey("Given an existing image but a kernel library that cannot be loaded", t, func() {
		cfg := testConfig(true)
		cfg.KernelLibraryPath = "/nonexistent/libqkernel_missing.so"
		backend := NewBackendConfiguration(cfg, WithFs(fsWithImage(cfg.AcceleratorImagePath)))

		Convey("Then the session is downgraded to software", func() {
			So(backend.Mode(), ShouldEqual, ModeSoftware)
			So(backend.Accelerated(), ShouldBeNil)
			So(errors.Is(backend.Reason(), ErrAcceleratorUnavailable), ShouldBeTrue)
			So(backend.Info().Downgrade, ShouldContainSubstring, "libqkernel_missing.so")
			So(backend.Close(), ShouldBeNil)
		})
	})
}
