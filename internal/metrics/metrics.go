package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the dispatcher.
// A nil *Metrics is valid and turns every method into a no-op, so wiring
// stays unconditional even when the listener is disabled.
type Metrics struct {
	registry             *prometheus.Registry
	dispatchesTotal      prometheus.Counter
	publishFailuresTotal prometheus.Counter
	reloadsTotal         prometheus.Counter
	parseErrorsTotal     prometheus.Counter
	pendingEntries       prometheus.Gauge
}

// New creates and registers the dispatcher metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	dispatchesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cued_dispatches_total",
		Help: "Total number of entries published to the bus",
	})
	publishFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cued_publish_failures_total",
		Help: "Total number of dispatches the bus reported as failed",
	})
	reloadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cued_reloads_total",
		Help: "Total number of fragment reload passes applied to the schedule",
	})
	parseErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cued_parse_errors_total",
		Help: "Total number of fragments rejected by the parser",
	})
	pendingEntries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cued_pending_entries",
		Help: "Number of entries waiting to fire",
	})

	registry.MustRegister(
		dispatchesTotal,
		publishFailuresTotal,
		reloadsTotal,
		parseErrorsTotal,
		pendingEntries,
	)

	return &Metrics{
		registry:             registry,
		dispatchesTotal:      dispatchesTotal,
		publishFailuresTotal: publishFailuresTotal,
		reloadsTotal:         reloadsTotal,
		parseErrorsTotal:     parseErrorsTotal,
		pendingEntries:       pendingEntries,
	}
}

func (m *Metrics) IncDispatches() {
	if m != nil {
		m.dispatchesTotal.Inc()
	}
}

func (m *Metrics) IncPublishFailures() {
	if m != nil {
		m.publishFailuresTotal.Inc()
	}
}

func (m *Metrics) IncReloads() {
	if m != nil {
		m.reloadsTotal.Inc()
	}
}

func (m *Metrics) AddParseErrors(n int) {
	if m != nil && n > 0 {
		m.parseErrorsTotal.Add(float64(n))
	}
}

func (m *Metrics) SetPendingEntries(n int) {
	if m != nil {
		m.pendingEntries.Set(float64(n))
	}
}

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
