package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// CartEngineMetrics records client-side cart reconciliation outcomes.
type CartEngineMetrics struct {
	mutations  *prometheus.CounterVec
	rollbacks  *prometheus.CounterVec
	mergeLines *prometheus.CounterVec
	remote     *prometheus.HistogramVec
}

// NewCartEngineMetrics registers the engine metrics on the provided registerer.
func NewCartEngineMetrics(reg prometheus.Registerer) *CartEngineMetrics {
	if reg == nil {
		return &CartEngineMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_engine_mutations_total",
		Help: "Cart mutations by operation, cart mode and outcome.",
	}, []string{"op", "mode", "outcome"})
	rollbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_engine_rollbacks_total",
		Help: "Optimistic writes restored after a failed remote call.",
	}, []string{"op"})
	mergeLines := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_engine_merge_lines_total",
		Help: "Guest lines pushed to the server cart during login merges.",
	}, []string{"outcome"})
	remote := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_engine_remote_duration_seconds",
		Help:    "Latency of calls to the cart persistence service.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reg.MustRegister(mutations, rollbacks, mergeLines, remote)
	return &CartEngineMetrics{
		mutations:  mutations,
		rollbacks:  rollbacks,
		mergeLines: mergeLines,
		remote:     remote,
	}
}

// IncMutation counts one mutation outcome.
func (m *CartEngineMetrics) IncMutation(op, mode, outcome string) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(mode), normalizeLabel(outcome)).Inc()
}

// IncRollback counts one restored optimistic write.
func (m *CartEngineMetrics) IncRollback(op string) {
	if m == nil || m.rollbacks == nil {
		return
	}
	m.rollbacks.WithLabelValues(normalizeLabel(op)).Inc()
}

// AddMergeLines counts merged guest lines by outcome.
func (m *CartEngineMetrics) AddMergeLines(outcome string, n int) {
	if m == nil || m.mergeLines == nil || n <= 0 {
		return
	}
	m.mergeLines.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}

// ObserveRemote records the latency of one remote call.
func (m *CartEngineMetrics) ObserveRemote(op string, duration time.Duration) {
	if m == nil || m.remote == nil {
		return
	}
	m.remote.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// CartServiceMetrics records server-side cart operation outcomes.
type CartServiceMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewCartServiceMetrics registers the cart service metrics on the provided registerer.
func NewCartServiceMetrics(reg prometheus.Registerer) *CartServiceMetrics {
	if reg == nil {
		return &CartServiceMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_service_operations_total",
		Help: "Cart persistence operations by outcome.",
	}, []string{"op", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_service_operation_duration_seconds",
		Help:    "Duration of cart persistence operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reg.MustRegister(operations, duration)
	return &CartServiceMetrics{operations: operations, duration: duration}
}

// Observe records one operation outcome and its duration.
func (m *CartServiceMetrics) Observe(op string, started time.Time, err error) {
	if m == nil || m.operations == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	op = normalizeLabel(op)
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
