package qkernel

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/theapemachine/errnie"
)

// Mode is the effective execution mode of a backend configuration.
type Mode int

const (
	ModeSoftware Mode = iota
	ModeAccelerated
)

func (m Mode) String() string {
	if m == ModeAccelerated {
		return "accelerated"
	}
	return "software"
}

// AcceleratorLoader opens the kernel library and resolves its entry symbol.
type AcceleratorLoader func(libraryPath, symbol string) (Accelerator, error)

type backendOptions struct {
	fs          afero.Fs
	accelerator Accelerator
	loader      AcceleratorLoader
}

// BackendOption customizes how NewBackendConfiguration resolves the backend.
type BackendOption func(*backendOptions)

// WithFs sets the filesystem the accelerator image is looked up on.
func WithFs(fs afero.Fs) BackendOption {
	return func(o *backendOptions) {
		o.fs = fs
	}
}

// WithAccelerator supplies an already loaded accelerator instead of opening
// the kernel library. The backend takes ownership and closes it.
func WithAccelerator(accelerator Accelerator) BackendOption {
	return func(o *backendOptions) {
		o.accelerator = accelerator
	}
}

// WithLoader replaces the native library loader.
func WithLoader(loader AcceleratorLoader) BackendOption {
	return func(o *backendOptions) {
		o.loader = loader
	}
}

func loadNativeKernel(libraryPath, symbol string) (Accelerator, error) {
	kernel, err := OpenNativeKernel(libraryPath, symbol)
	if err != nil {
		return nil, err
	}
	return kernel, nil
}

/*
BackendConfiguration decides, once, whether a session runs accelerated. When
PreferAccelerated is set but the accelerator image does not exist, or the
kernel library cannot be loaded, the effective mode drops to software for
the lifetime of the configuration and the reason is reported a single time.
Later calls never re-check the filesystem; only call-time failures are
handled per call, by the dispatcher.
*/
type BackendConfiguration struct {
	PreferAccelerated    bool
	AcceleratorImagePath string

	mode    Mode
	reason  error
	kernel  *AcceleratedKernel
	timeout time.Duration
	host    HostFeatures
}

// BackendInfo is a read-only summary of a resolved backend.
type BackendInfo struct {
	Mode                 Mode
	PreferAccelerated    bool
	AcceleratorImagePath string
	Kernel               string
	Downgrade            string
	Host                 HostFeatures
}

func NewBackendConfiguration(cfg *Config, opts ...BackendOption) *BackendConfiguration {
	options := &backendOptions{
		fs:     afero.NewOsFs(),
		loader: loadNativeKernel,
	}
	for _, opt := range opts {
		opt(options)
	}

	b := &BackendConfiguration{
		PreferAccelerated:    cfg.PreferAccelerated,
		AcceleratorImagePath: cfg.AcceleratorImagePath,
		mode:                 ModeSoftware,
		timeout:              cfg.KernelTimeout,
		host:                 DetectHostFeatures(),
	}

	if !cfg.PreferAccelerated {
		if options.accelerator != nil {
			_ = options.accelerator.Close()
		}
		errnie.Info("backend: software kernel on %s", b.host)
		return b
	}

	accelerator, err := b.resolve(cfg, options)
	if err != nil {
		b.reason = err
		errnie.Warn("backend: accelerator unavailable, falling back to software for this session: %v", err)
		return b
	}

	b.mode = ModeAccelerated
	b.kernel = NewAcceleratedKernel(accelerator, cfg.AcceleratorImagePath, cfg.KernelTimeout)
	errnie.Info("backend: %s with image %s", b.kernel.Name(), cfg.AcceleratorImagePath)

	return b
}

func (b *BackendConfiguration) resolve(cfg *Config, options *backendOptions) (Accelerator, error) {
	exists, err := afero.Exists(options.fs, cfg.AcceleratorImagePath)
	if err != nil || !exists {
		if options.accelerator != nil {
			_ = options.accelerator.Close()
		}
		if err == nil {
			err = os.ErrNotExist
		}
		return nil, fmt.Errorf("%w: image %s: %v", ErrAcceleratorUnavailable, cfg.AcceleratorImagePath, err)
	}

	if options.accelerator != nil {
		return options.accelerator, nil
	}

	accelerator, err := options.loader(cfg.KernelLibraryPath, cfg.KernelSymbol)
	if err != nil {
		if !errors.Is(err, ErrAcceleratorUnavailable) {
			err = fmt.Errorf("%w: %v", ErrAcceleratorUnavailable, err)
		}
		return nil, err
	}

	return accelerator, nil
}

func (b *BackendConfiguration) Mode() Mode {
	return b.mode
}

// Reason explains a downgrade to software, or is nil.
func (b *BackendConfiguration) Reason() error {
	return b.reason
}

// Accelerated returns the accelerated kernel, or nil in software mode.
func (b *BackendConfiguration) Accelerated() *AcceleratedKernel {
	return b.kernel
}

func (b *BackendConfiguration) Info() BackendInfo {
	info := BackendInfo{
		Mode:                 b.mode,
		PreferAccelerated:    b.PreferAccelerated,
		AcceleratorImagePath: b.AcceleratorImagePath,
		Kernel:               "software",
		Host:                 b.host,
	}

	if b.kernel != nil {
		info.Kernel = b.kernel.Name()
	}

	if b.reason != nil {
		info.Downgrade = b.reason.Error()
	}

	return info
}

// Close releases the accelerator, waiting at most the kernel timeout for an
// in-flight call.
func (b *BackendConfiguration) Close() error {
	if b.kernel == nil {
		return nil
	}
	return b.kernel.Close(b.timeout)
}
