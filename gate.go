package qkernel

import "fmt"

// Gate identifies a single-qubit gate.
type Gate int

const (
	Hadamard Gate = iota
)

func (g Gate) String() string {
	switch g {
	case Hadamard:
		return "H"
	default:
		return fmt.Sprintf("Gate(%d)", int(g))
	}
}

// GateRequest asks for one gate on one target qubit. It only lives for the
// duration of a dispatch call.
type GateRequest struct {
	Gate   Gate
	Target int
}

// Validate checks the request against a register of qubitCount qubits.
func (r GateRequest) Validate(qubitCount int) error {
	if r.Gate != Hadamard {
		return fmt.Errorf("%w: %s", ErrUnknownGate, r.Gate)
	}

	if r.Target < 0 || r.Target >= qubitCount {
		return fmt.Errorf(
			"%w: target %d not in [0, %d)",
			ErrInvalidQubitIndex, r.Target, qubitCount,
		)
	}

	return nil
}

func (r GateRequest) String() string {
	return fmt.Sprintf("%s(q%d)", r.Gate, r.Target)
}

// HadamardAll returns one Hadamard request per qubit, lowest index first,
// or nil when qubitCount is below one.
func HadamardAll(qubitCount int) []GateRequest {
	if qubitCount < 1 {
		return nil
	}

	requests := make([]GateRequest, 0, qubitCount)
	for q := 0; q < qubitCount; q++ {
		requests = append(requests, GateRequest{Gate: Hadamard, Target: q})
	}
	return requests
}
