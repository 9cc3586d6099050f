// Package metrics instruments the dispatch layer with Prometheus
// counters and a latency histogram. This sits outside the core jrpc
// package on purpose — a library shouldn't force a metrics backend on
// every embedder — but it is exactly the kind of ambient concern a
// long-lived local RPC endpoint needs in practice, so the demo server
// wires it in by wrapping each method's handler chain.
package metrics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/advem/ipsc-go/ipsc"
	"github.com/advem/ipsc-go/jrpc"
)

// Metrics holds the counters and histogram exported under namespace.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New registers a fresh set of metrics under namespace on their own
// registry (not the global default, so multiple Servers in one process
// never collide).
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total dispatched requests by method.",
		}, []string{"method"}),
		outcomes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_outcomes_total",
			Help:      "Handler chain outcomes by method and outcome.",
		}, []string{"method", "outcome"}),
		latency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Handler execution latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	return m
}

// Handler serves the registry's collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcomeLabel(o jrpc.Outcome) string {
	switch o {
	case jrpc.Replied:
		return "replied"
	case jrpc.InternalError:
		return "internal_error"
	default:
		return "continue"
	}
}

// Wrap instruments a single handler with request/outcome counters and a
// latency observation, attributing everything to method.
func (m *Metrics) Wrap(method string, h jrpc.Handler) jrpc.Handler {
	return func(conn *ipsc.Connection, params json.RawMessage, id json.RawMessage) jrpc.Outcome {
		start := time.Now()
		m.requests.WithLabelValues(method).Inc()

		outcome := h(conn, params, id)

		m.latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
		m.outcomes.WithLabelValues(method, outcomeLabel(outcome)).Inc()
		return outcome
	}
}
