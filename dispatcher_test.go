package qkernel

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func acceleratedDispatcher(mock Accelerator, breaker CircuitBreakerConfig) *Dispatcher {
	cfg := testConfig(true)
	backend := NewBackendConfiguration(cfg, WithFs(fsWithImage(cfg.AcceleratorImagePath)), WithAccelerator(mock))
	return NewDispatcher(backend, NewCircuitBreaker(breaker), NewMetrics())
}

func TestDispatcherSoftware(t *testing.T) {
	Convey("Given a software-only dispatcher", t, func() {
		ctx := context.Background()
		dispatcher := NewDispatcher(NewBackendConfiguration(NewConfig()), nil, nil)
		So(dispatcher.Accelerated(), ShouldBeFalse)

		Convey("When applying H to a single qubit", func() {
			sv, _ := NewStateVector(1)
			out, err := dispatcher.ApplyHadamard(ctx, sv, 0)

			Convey("Then the same state is returned in superposition", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, sv)
				So(real(sv.Amplitude(0)), ShouldAlmostEqual, 0.70710678, 1e-6)
				So(real(sv.Amplitude(1)), ShouldAlmostEqual, 0.70710678, 1e-6)
			})
		})

		Convey("When applying H to qubit 0 then qubit 1 of two qubits", func() {
			sv, _ := NewStateVector(2)
			_, err := dispatcher.ApplyHadamard(ctx, sv, 0)
			So(err, ShouldBeNil)
			_, err = dispatcher.ApplyHadamard(ctx, sv, 1)
			So(err, ShouldBeNil)

			Convey("Then every amplitude is one half", func() {
				So(maxDiff(sv.Amplitudes(), []complex128{0.5, 0.5, 0.5, 0.5}), ShouldBeLessThan, 1e-6)
				So(dispatcher.Metrics().SoftwareGates, ShouldEqual, 2)
			})
		})

		Convey("When the target qubit is out of range", func() {
			sv, _ := NewStateVector(2)
			out, err := dispatcher.ApplyHadamard(ctx, sv, 5)

			Convey("Then it fails and leaves the state unchanged", func() {
				So(out, ShouldBeNil)
				So(errors.Is(err, ErrInvalidQubitIndex), ShouldBeTrue)
				So(sv.Amplitudes(), ShouldResemble, []complex128{1, 0, 0, 0})
				So(dispatcher.Metrics().RejectedGates, ShouldEqual, 1)
			})
		})

		Convey("When the gate is unknown", func() {
			sv, _ := NewStateVector(1)
			_, err := dispatcher.Apply(ctx, sv, GateRequest{Gate: Gate(9), Target: 0})
			So(errors.Is(err, ErrUnknownGate), ShouldBeTrue)
		})

		Convey("When the state is nil", func() {
			_, err := dispatcher.ApplyHadamard(ctx, nil, 0)
			So(errors.Is(err, ErrInvalidDimension), ShouldBeTrue)
		})
	})
}

func TestDispatcherRun(t *testing.T) {
	Convey("Given a sequence of gate requests", t, func() {
		ctx := context.Background()
		dispatcher := NewDispatcher(NewBackendConfiguration(NewConfig()), nil, nil)

		Convey("When every qubit gets a Hadamard", func() {
			for n := 1; n <= 10; n++ {
				sv, _ := NewStateVector(n)
				_, err := dispatcher.Run(ctx, sv, HadamardAll(n))
				So(err, ShouldBeNil)
				So(real(sv.Amplitude(0)), ShouldAlmostEqual, 1/math.Sqrt(float64(sv.Len())), tolerance)
			}
		})

		Convey("When the same qubit gets two Hadamards", func() {
			rng := rand.New(rand.NewSource(3))
			original := randomState(rng, 3)
			sv, _ := NewStateVectorFrom(original)
			_, err := dispatcher.Run(ctx, sv, []GateRequest{{Hadamard, 2}, {Hadamard, 2}})

			So(err, ShouldBeNil)
			So(maxDiff(sv.Amplitudes(), original), ShouldBeLessThan, tolerance)
		})

		Convey("When a request in the middle is invalid", func() {
			sv, _ := NewStateVector(2)
			_, err := dispatcher.Run(ctx, sv, []GateRequest{{Hadamard, 0}, {Hadamard, 3}, {Hadamard, 1}})

			Convey("Then the run stops there and names the request", func() {
				So(errors.Is(err, ErrInvalidQubitIndex), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "gate 1")
				So(maxDiff(sv.Amplitudes(), []complex128{complex(invSqrt2, 0), complex(invSqrt2, 0), 0, 0}), ShouldBeLessThan, tolerance)
			})
		})
	})
}

func TestDispatcherAccelerated(t *testing.T) {
	Convey("Given a dispatcher over the mock accelerator", t, func() {
		ctx := context.Background()
		mock := NewMockAccelerator()
		dispatcher := acceleratedDispatcher(mock, CircuitBreakerConfig{})
		So(dispatcher.Accelerated(), ShouldBeTrue)

		rng := rand.New(rand.NewSource(11))
		original := randomState(rng, 4)
		reference, _ := NewSoftwareKernel().ApplyHadamard(ctx, original, 2, 4)

		Convey("When the kernel succeeds", func() {
			sv, _ := NewStateVectorFrom(original)
			_, err := dispatcher.ApplyHadamard(ctx, sv, 2)

			Convey("Then the accelerated result matches the software result", func() {
				So(err, ShouldBeNil)
				So(mock.Calls(), ShouldEqual, 1)
				So(maxDiff(sv.Amplitudes(), reference), ShouldBeLessThan, tolerance)
				So(dispatcher.Metrics().AcceleratedGates, ShouldEqual, 1)
			})
		})

		Convey("When the kernel reports a nonzero status", func() {
			mock.Status = 7
			sv, _ := NewStateVectorFrom(original)
			_, err := dispatcher.ApplyHadamard(ctx, sv, 2)

			Convey("Then the state equals the software result exactly and no error is raised", func() {
				So(err, ShouldBeNil)
				So(sv.Amplitudes(), ShouldResemble, reference)
				So(dispatcher.Metrics().FallbackGates, ShouldEqual, 1)
				So(dispatcher.Metrics().KernelFailures["status 7"], ShouldEqual, 1)
			})

			Convey("Then the next call still tries the accelerator", func() {
				mock.Status = 0
				_, err := dispatcher.ApplyHadamard(ctx, sv, 2)
				So(err, ShouldBeNil)
				So(mock.Calls(), ShouldEqual, 2)
				So(maxDiff(sv.Amplitudes(), original), ShouldBeLessThan, tolerance)
			})
		})

		Convey("When the accelerator panics", func() {
			mock.Panic = true
			sv, _ := NewStateVectorFrom(original)
			_, err := dispatcher.ApplyHadamard(ctx, sv, 2)

			So(err, ShouldBeNil)
			So(sv.Amplitudes(), ShouldResemble, reference)
			So(dispatcher.Metrics().KernelFailures["panic"], ShouldEqual, 1)
		})

		Convey("When the accelerator hangs past the timeout", func() {
			mock.Delay = 2 * time.Second
			cancelCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
			defer cancel()

			sv, _ := NewStateVectorFrom(original)
			_, err := dispatcher.ApplyHadamard(cancelCtx, sv, 2)

			So(err, ShouldBeNil)
			So(sv.Amplitudes(), ShouldResemble, reference)
			So(dispatcher.Metrics().KernelFailures["abandoned"], ShouldEqual, 1)
		})

		Convey("When every qubit of |0…0⟩ gets a Hadamard", func() {
			for n := 1; n <= 10; n++ {
				sv, _ := NewStateVector(n)
				_, err := dispatcher.Run(ctx, sv, HadamardAll(n))
				So(err, ShouldBeNil)
				So(real(sv.Amplitude(0)), ShouldAlmostEqual, 1/math.Sqrt(float64(sv.Len())), tolerance)
				So(math.Abs(sv.Norm()-1), ShouldBeLessThan, tolerance)
			}
			So(dispatcher.Metrics().AcceleratedGates, ShouldEqual, 55)
		})
	})
}

func TestDispatcherBreaker(t *testing.T) {
	Convey("Given a dispatcher with a fallback breaker", t, func() {
		ctx := context.Background()
		mock := NewMockAccelerator()
		mock.Status = 1
		dispatcher := acceleratedDispatcher(mock, CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
			HalfOpenMax:  1,
		})

		Convey("When the accelerator keeps failing", func() {
			sv, _ := NewStateVector(2)
			for i := 0; i < 3; i++ {
				_, err := dispatcher.ApplyHadamard(ctx, sv, 0)
				So(err, ShouldBeNil)
			}

			Convey("Then later calls skip it", func() {
				So(mock.Calls(), ShouldEqual, 2)
				So(dispatcher.Metrics().BreakerSkips, ShouldEqual, 1)
				So(dispatcher.Metrics().FallbackGates, ShouldEqual, 3)
				So(maxDiff(sv.Amplitudes(), []complex128{complex(invSqrt2, 0), complex(invSqrt2, 0), 0, 0}), ShouldBeLessThan, tolerance)
			})
		})
	})
}
