package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Verification outcomes by result: verified, not_verified, failed
	Outcomes *prometheus.CounterVec

	// Registry read latency by network
	RegistryLatency *prometheus.HistogramVec

	// Registry failures by taxonomy category
	RegistryErrors *prometheus.CounterVec

	// Continuations not yet finished
	InFlight prometheus.Gauge

	// Refund transfers by reason, and transfers that could not be delivered
	Refunds        *prometheus.CounterVec
	RefundFailures prometheus.Counter

	// Removal attempts by result: removed, absent, denied
	Removals *prometheus.CounterVec
}

// New registers all verification metrics with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers all verification metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profilecheck_verification_outcomes_total",
			Help: "Total verification outcomes by result and reason",
		}, []string{"result", "reason"}),

		RegistryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "profilecheck_registry_query_duration_seconds",
			Help:    "Duration of registry profile reads by network",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}, []string{"network"}),

		RegistryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profilecheck_registry_errors_total",
			Help: "Registry read failures by category",
		}, []string{"category"}),

		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "profilecheck_verifications_in_flight",
			Help: "Verifications awaiting their registry response",
		}),

		Refunds: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profilecheck_refunds_total",
			Help: "Refund transfers issued by reason",
		}, []string{"reason"}),

		RefundFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "profilecheck_refund_failures_total",
			Help: "Refund transfers that could not be delivered",
		}),

		Removals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "profilecheck_removals_total",
			Help: "Verification removal attempts by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementOutcome(result, reason string) {
	if m != nil {
		m.Outcomes.WithLabelValues(result, reason).Inc()
	}
}

// ObserveRegistryLatency records one registry read.
func (m *Metrics) ObserveRegistryLatency(network string, d time.Duration) {
	if m != nil {
		m.RegistryLatency.WithLabelValues(network).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementRegistryError(category string) {
	if m != nil {
		m.RegistryErrors.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) IncInFlight() {
	if m != nil {
		m.InFlight.Inc()
	}
}

func (m *Metrics) DecInFlight() {
	if m != nil {
		m.InFlight.Dec()
	}
}

func (m *Metrics) IncrementRefund(reason string) {
	if m != nil {
		m.Refunds.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementRefundFailure() {
	if m != nil {
		m.RefundFailures.Inc()
	}
}

func (m *Metrics) IncrementRemoval(result string) {
	if m != nil {
		m.Removals.WithLabelValues(result).Inc()
	}
}
