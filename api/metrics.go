package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Validation outcomes reported by ObserveValidation.
const (
	OutcomeAccepted      = "accepted"
	OutcomeOutsideWindow = "outside_site_window"
	OutcomeExceedsWindow = "rotation_exceeds_site_window"
	OutcomeInvalidCycle  = "invalid_cycle"
)

const defaultMetricsNamespace = "calendario"

// Metrics is a Prometheus collector for the HTTP layer. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	reg       *prometheus.Registry
	namespace string
	once      sync.Once

	requests      *prometheus.CounterVec
	monthLatency  prometheus.Histogram
	monthPersons  prometheus.Histogram
	validations   *prometheus.CounterVec
	auditFailures *prometheus.CounterVec
	auditPurged   prometheus.Counter
}

// NewMetrics registers on reg, or on a fresh registry when reg is nil.
func NewMetrics(reg *prometheus.Registry, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = defaultMetricsNamespace
	}
	m := &Metrics{reg: reg, namespace: namespace}
	m.ensureRegistered()
	return m
}

func (m *Metrics) ensureRegistered() {
	m.once.Do(func() {
		m.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"})

		m.monthLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "calendar",
			Name:      "compute_seconds",
			Help:      "Latency of month calendar computations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		})

		m.monthPersons = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "calendar",
			Name:      "persons_per_request",
			Help:      "Number of persons in each month computation.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		})

		m.validations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "assignments",
			Name:      "validations_total",
			Help:      "Assignment validations by outcome.",
		}, []string{"outcome"})

		m.auditFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "audit",
			Name:      "sink_failures_total",
			Help:      "Audit entries that a sink failed to accept.",
		}, []string{"sink"})

		m.auditPurged = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "audit",
			Name:      "purged_entries_total",
			Help:      "Audit entries removed by retention purges.",
		})

		m.reg.MustRegister(m.requests)
		m.reg.MustRegister(m.monthLatency)
		m.reg.MustRegister(m.monthPersons)
		m.reg.MustRegister(m.validations)
		m.reg.MustRegister(m.auditFailures)
		m.reg.MustRegister(m.auditPurged)
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveMonth(persons int, took time.Duration) {
	if m == nil {
		return
	}
	m.monthLatency.Observe(took.Seconds())
	m.monthPersons.Observe(float64(persons))
}

func (m *Metrics) ObserveValidation(outcome string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(outcome).Inc()
}

// AuditFailure matches audit.WithFailureHook.
func (m *Metrics) AuditFailure(sink string) {
	if m == nil {
		return
	}
	m.auditFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) ObservePurge(n int64) {
	if m == nil {
		return
	}
	m.auditPurged.Add(float64(n))
}
