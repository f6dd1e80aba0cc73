package main

import (
	"context"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"github.com/theapemachine/qkernel"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "", "config file (yaml, toml or json)")
		qubits     = pflag.IntP("qubits", "n", 1, "number of qubits")
		targets    = pflag.IntSliceP("target", "t", nil, "Hadamard targets in order (default: every qubit)")
		accel      = pflag.Bool("prefer-accelerated", false, "try the accelerated kernel first")
		image      = pflag.String("image", "", "accelerator image path")
		library    = pflag.String("library", "", "kernel shared library path")
		mock       = pflag.Bool("mock", false, "use the CPU-backed mock accelerator (the image must still exist)")
		dump       = pflag.Bool("dump", false, "dump backend info and metrics")
	)
	pflag.Parse()

	if err := run(*configPath, *qubits, *targets, *accel, *image, *library, *mock, *dump); err != nil {
		fmt.Fprintln(os.Stderr, "qkernel:", err)
		os.Exit(1)
	}
}

func run(configPath string, qubits int, targets []int, accel bool, image, library string, mock, dump bool) error {
	cfg, err := qkernel.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if pflag.CommandLine.Changed("prefer-accelerated") {
		cfg.PreferAccelerated = accel
	}
	if image != "" {
		cfg.AcceleratorImagePath = image
	}
	if library != "" {
		cfg.KernelLibraryPath = library
	}

	var opts []qkernel.BackendOption
	if mock {
		opts = append(opts, qkernel.WithAccelerator(qkernel.NewMockAccelerator()))
	}

	session := qkernel.NewSession(cfg, opts...)
	defer session.Close()

	requests := qkernel.HadamardAll(qubits)
	if len(targets) > 0 {
		requests = requests[:0]
		for _, t := range targets {
			requests = append(requests, qkernel.GateRequest{Gate: qkernel.Hadamard, Target: t})
		}
	}

	state, err := session.Execute(context.Background(), qubits, requests)
	if err != nil {
		return err
	}

	info := session.Info()
	fmt.Printf("session %s: %s kernel, %d qubits\n", session.ID, info.Kernel, qubits)
	for i, a := range state.Amplitudes() {
		fmt.Printf("|%0*b⟩  %+.8f %+.8fi\n", qubits, i, real(a), imag(a))
	}

	if dump {
		spew.Dump(info, session.Metrics())
	}

	return nil
}
