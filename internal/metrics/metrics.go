// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/retry"
)

const namespace = "wisdom"

// Metrics owns a registry so tests can create as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	resolutions   *prometheus.CounterVec
	tierDuration  *prometheus.HistogramVec
	tierFailures  *prometheus.CounterVec
	sessionStates *prometheus.CounterVec
	payments      *prometheus.CounterVec
	quota         *prometheus.CounterVec
	keyRefreshes  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolver",
				Name:      "resolutions_total",
				Help:      "Answers served, by source and failure kind of the last live tier.",
			},
			[]string{"source", "failure"},
		),
		tierDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "resolver",
				Name:      "tier_duration_seconds",
				Help:      "Duration of remote and direct tier calls.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"tier"},
		),
		tierFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolver",
				Name:      "tier_failures_total",
				Help:      "Failed tier calls by kind.",
			},
			[]string{"tier", "kind"},
		),
		sessionStates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "state_transitions_total",
				Help:      "Retry session state transitions.",
			},
			[]string{"state"},
		),
		payments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "payments",
				Name:      "callbacks_total",
				Help:      "Payment callbacks by provider and outcome.",
			},
			[]string{"provider", "outcome"},
		),
		quota: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "voice_requests_total",
				Help:      "Voice quota consume calls by result.",
			},
			[]string{"result"},
		),
		keyRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "keys",
				Name:      "refreshes_total",
				Help:      "Scheduled API key re-validations.",
			},
			[]string{"success"},
		),
	}

	m.Registry.MustRegister(
		m.resolutions,
		m.tierDuration,
		m.tierFailures,
		m.sessionStates,
		m.payments,
		m.quota,
		m.keyRefreshes,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveResolution(source entity.Source, failure string) {
	m.resolutions.WithLabelValues(string(source), failure).Inc()
}

func (m *Metrics) ObserveTier(tier string, elapsed time.Duration, err error) {
	m.tierDuration.WithLabelValues(tier).Observe(elapsed.Seconds())
	if err != nil {
		m.tierFailures.WithLabelValues(tier, entity.KindOf(err).String()).Inc()
	}
}

func (m *Metrics) ObserveSessionState(_ string, s retry.State) {
	m.sessionStates.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) ObservePayment(provider, outcome string) {
	m.payments.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveQuota(result string) {
	m.quota.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveKeyRefresh(err error) {
	success := "true"
	if err != nil {
		success = "false"
	}
	m.keyRefreshes.WithLabelValues(success).Inc()
}
