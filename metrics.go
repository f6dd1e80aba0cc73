package qkernel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Path records which kernel produced the result of a gate.
type Path int

const (
	PathSoftware Path = iota
	PathAccelerated
	PathFallback
)

func (p Path) String() string {
	switch p {
	case PathAccelerated:
		return "accelerated"
	case PathFallback:
		return "fallback"
	default:
		return "software"
	}
}

/*
Metrics counts gate applications per path and keeps a sliding window of
gate latencies for percentile reporting. It is shared by every circuit run
through one session.
*/
type Metrics struct {
	mu sync.RWMutex

	GateCount        int64
	AcceleratedGates int64
	SoftwareGates    int64
	FallbackGates    int64
	RejectedGates    int64
	BreakerSkips     int64

	// Kernel failures by category: "status N", "panic", "abandoned",
	// "unavailable", "dimension" or "fault".
	KernelFailures map[string]int64

	TotalGateTime      time.Duration
	AverageGateLatency time.Duration
	P95GateLatency     time.Duration
	P99GateLatency     time.Duration

	latencies  []time.Duration
	windowSize int
}

func NewMetrics() *Metrics {
	return &Metrics{
		KernelFailures: make(map[string]int64),
		latencies:      make([]time.Duration, 0, 1000),
		windowSize:     1000,
	}
}

func (m *Metrics) recordGate(startTime time.Time, path Path) {
	duration := time.Since(startTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.GateCount++
	m.TotalGateTime += duration

	switch path {
	case PathAccelerated:
		m.AcceleratedGates++
	case PathFallback:
		m.FallbackGates++
	default:
		m.SoftwareGates++
	}

	m.updateLatencyPercentiles(duration)
}

func (m *Metrics) recordRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RejectedGates++
}

func (m *Metrics) recordBreakerSkip() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BreakerSkips++
}

func (m *Metrics) recordKernelFailure(err error) {
	cause := failureCategory(err)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.KernelFailures[cause]++
}

// failureCategory maps a kernel error onto a small fixed set of keys, so
// the failure counters stay bounded however many distinct messages occur.
func failureCategory(err error) string {
	var ke *KernelError
	if !errors.As(err, &ke) {
		return "unknown"
	}

	switch {
	case ke.Cause == nil:
		return fmt.Sprintf("status %d", ke.Status)
	case errors.Is(ke.Cause, errKernelPanic):
		return "panic"
	case errors.Is(ke.Cause, context.DeadlineExceeded), errors.Is(ke.Cause, context.Canceled):
		return "abandoned"
	case errors.Is(ke.Cause, ErrAcceleratorUnavailable):
		return "unavailable"
	case errors.Is(ke.Cause, ErrDimensionMismatch):
		return "dimension"
	default:
		return "fault"
	}
}

func (m *Metrics) updateLatencyPercentiles(duration time.Duration) {
	m.AverageGateLatency = m.TotalGateTime / time.Duration(m.GateCount)

	m.latencies = append(m.latencies, duration)
	if len(m.latencies) > m.windowSize {
		m.latencies = m.latencies[1:]
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	if len(sorted) > 0 {
		p95Index := int(float64(len(sorted)) * 0.95)
		p99Index := int(float64(len(sorted)) * 0.99)

		if p95Index >= len(sorted) {
			p95Index = len(sorted) - 1
		}
		if p99Index >= len(sorted) {
			p99Index = len(sorted) - 1
		}

		m.P95GateLatency = sorted[p95Index]
		m.P99GateLatency = sorted[p99Index]
	}
}

// ExportMetrics returns a snapshot suitable for logging or printing.
func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	failures := make(map[string]int64, len(m.KernelFailures))
	for k, v := range m.KernelFailures {
		failures[k] = v
	}

	return map[string]interface{}{
		"gate_count":           m.GateCount,
		"accelerated_gates":    m.AcceleratedGates,
		"software_gates":       m.SoftwareGates,
		"fallback_gates":       m.FallbackGates,
		"rejected_gates":       m.RejectedGates,
		"breaker_skips":        m.BreakerSkips,
		"kernel_failures":      failures,
		"total_gate_time":      m.TotalGateTime,
		"average_gate_latency": m.AverageGateLatency,
		"p95_gate_latency":     m.P95GateLatency,
		"p99_gate_latency":     m.P99GateLatency,
	}
}
