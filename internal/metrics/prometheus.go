package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// StoreMetrics counts store operations. A nil *StoreMetrics is valid and
// records nothing.
type StoreMetrics struct {
	Operations   *prometheus.CounterVec
	InitFailures *prometheus.CounterVec
}

// NewStoreMetrics creates the store counters and registers them on reg. A
// collector that is already registered is reused, so several providers in one
// process can share a registry.
func NewStoreMetrics(reg prometheus.Registerer) (*StoreMetrics, error) {
	m := &StoreMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_store_operations_total",
			Help: "Total number of identity store operations by outcome.",
		}, []string{"store", "operation", "outcome"}),
		InitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_store_init_failures_total",
			Help: "Total number of failed one-time initialization attempts.",
		}, []string{"stage"}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.Operations, err = register(reg, m.Operations); err != nil {
		return nil, err
	}
	if m.InitFailures, err = register(reg, m.InitFailures); err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// Observe records one operation.
func (m *StoreMetrics) Observe(store, operation, outcome string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(store, operation, outcome).Inc()
}

// InitFailed records a failed initialization attempt.
func (m *StoreMetrics) InitFailed(stage string) {
	if m == nil {
		return
	}
	m.InitFailures.WithLabelValues(stage).Inc()
}
