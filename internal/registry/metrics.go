package registry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the registry's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	entries       *prometheus.GaugeVec
	registrations prometheus.Counter
	withdrawals   prometheus.Counter
	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
}

// NewMetrics creates the registry collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "capmatch_registry_entries",
				Help: "Number of registered entries by namespace.",
			},
			[]string{"namespace"},
		),
		registrations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "capmatch_registry_registrations_total",
				Help: "Total number of registrations.",
			},
		),
		withdrawals: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "capmatch_registry_withdrawals_total",
				Help: "Total number of withdrawn entries.",
			},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capmatch_registry_queries_total",
				Help: "Number of registry queries by result.",
			},
			[]string{"result"},
		),
		queryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "capmatch_registry_query_duration_seconds",
				Help:    "Time taken to answer a registry query.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.entries, m.registrations, m.withdrawals, m.queries, m.queryDuration)
	}

	return m
}

func (m *Metrics) setEntries(s *snapshot, namespaces ...string) {
	if m == nil {
		return
	}

	for _, ns := range namespaces {
		m.entries.WithLabelValues(ns).Set(float64(len(s.byNamespace[ns])))
	}
}

func (m *Metrics) registered() {
	if m != nil {
		m.registrations.Inc()
	}
}

func (m *Metrics) withdrawn(n int) {
	if m != nil {
		m.withdrawals.Add(float64(n))
	}
}

func (m *Metrics) observeQuery(start time.Time, err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}

	m.queries.WithLabelValues(result).Inc()
	m.queryDuration.Observe(time.Since(start).Seconds())
}
