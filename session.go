package qkernel

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/theapemachine/errnie"
)

/*
Session is the explicit lifetime of one device: it resolves the backend
when created, holds the accelerator handle while open, and releases it on
Close. Nothing is built at package load time.
*/
type Session struct {
	ID string

	mu         sync.RWMutex
	closed     bool
	config     *Config
	backend    *BackendConfiguration
	dispatcher *Dispatcher
	metrics    *Metrics
}

// NewSession resolves the backend described by cfg. A nil cfg uses
// NewConfig.
func NewSession(cfg *Config, opts ...BackendOption) *Session {
	if cfg == nil {
		cfg = NewConfig()
	}

	backend := NewBackendConfiguration(cfg, opts...)
	metrics := NewMetrics()

	s := &Session{
		ID:         uuid.Must(uuid.NewV7()).String(),
		config:     cfg,
		backend:    backend,
		dispatcher: NewDispatcher(backend, NewCircuitBreaker(cfg.Breaker), metrics),
		metrics:    metrics,
	}

	errnie.Info("session %s opened (%s kernel)", s.ID, backend.Info().Kernel)
	return s
}

func (s *Session) Config() *Config {
	return s.config
}

func (s *Session) Dispatcher() *Dispatcher {
	return s.dispatcher
}

func (s *Session) Info() BackendInfo {
	return s.backend.Info()
}

func (s *Session) Metrics() map[string]interface{} {
	return s.metrics.ExportMetrics()
}

/*
Execute runs one circuit: it starts from |0…0⟩ on qubitCount qubits and
applies requests in order. The returned state belongs to the caller.
*/
func (s *Session) Execute(ctx context.Context, qubitCount int, requests []GateRequest) (*StateVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	state, err := NewStateVector(qubitCount)
	if err != nil {
		return nil, err
	}

	return s.dispatcher.Run(ctx, state, requests)
}

// Close releases the accelerator. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	errnie.Info("session %s closed", s.ID)
	return s.backend.Close()
}
