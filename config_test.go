package qkernel

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewConfig(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := NewConfig()

		So(cfg.PreferAccelerated, ShouldBeFalse)
		So(cfg.AcceleratorImagePath, ShouldEqual, "libadf.xclbin")
		So(cfg.KernelSymbol, ShouldEqual, "hadamard_kernel_execute_c")
		So(cfg.KernelTimeout, ShouldEqual, 30*time.Second)
		So(cfg.Breaker.MaxFailures, ShouldEqual, 0)
	})
}

func TestLoadConfig(t *testing.T) {
	Convey("Given a config file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "qkernel.yaml")
		content := []byte(`
prefer_accelerated: true
accelerator_image_path: /opt/fpga/hadamard.xclbin
kernel_timeout: 5s
workers: 8
breaker:
  max_failures: 3
  reset_timeout: 10s
`)
		So(os.WriteFile(path, content, 0o644), ShouldBeNil)

		Convey("When it is loaded", func() {
			cfg, err := LoadConfig(path)

			Convey("Then file values override the defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.PreferAccelerated, ShouldBeTrue)
				So(cfg.AcceleratorImagePath, ShouldEqual, "/opt/fpga/hadamard.xclbin")
				So(cfg.KernelTimeout, ShouldEqual, 5*time.Second)
				So(cfg.Workers, ShouldEqual, 8)
				So(cfg.Breaker.MaxFailures, ShouldEqual, 3)
				So(cfg.Breaker.ResetTimeout, ShouldEqual, 10*time.Second)
			})

			Convey("Then unset keys keep their defaults", func() {
				So(cfg.KernelSymbol, ShouldEqual, "hadamard_kernel_execute_c")
				So(cfg.KernelLibraryPath, ShouldEqual, "build/lib/librtd_custom_device.so")
				So(cfg.Breaker.HalfOpenMax, ShouldEqual, 1)
			})
		})

		Convey("When the environment overrides a key", func() {
			t.Setenv("QKERNEL_KERNEL_SYMBOL", "hadamard_v2")
			t.Setenv("QKERNEL_BREAKER_MAX_FAILURES", "5")
			cfg, err := LoadConfig(path)

			So(err, ShouldBeNil)
			So(cfg.KernelSymbol, ShouldEqual, "hadamard_v2")
			So(cfg.Breaker.MaxFailures, ShouldEqual, 5)
		})
	})

	Convey("Given no config file", t, func() {
		cfg, err := LoadConfig("")

		So(err, ShouldBeNil)
		So(cfg.AcceleratorImagePath, ShouldEqual, "libadf.xclbin")
		So(cfg.Workers, ShouldEqual, 4)
	})

	Convey("Given a missing config file", t, func() {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		So(err, ShouldNotBeNil)
	})
}
