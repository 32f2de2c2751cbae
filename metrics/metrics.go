// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics owns the registry and the request-level collectors. All
// methods are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pico_requests_total",
			Help: "Requests handled, by method, route key, and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pico_request_duration_seconds",
			Help:    "Request handling latency by route key.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pico_requests_in_flight",
			Help: "Requests currently being handled.",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for the admin /metrics
// endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Start marks a request in flight and returns its start time.
func (m *Metrics) Start() time.Time {
	m.inFlight.Inc()
	return time.Now()
}

// End records the finished request. An empty routeKey means the
// request never matched a route.
func (m *Metrics) End(start time.Time, method, routeKey string, status int) {
	m.inFlight.Dec()
	if routeKey == "" {
		routeKey = "(unmatched)"
	}
	m.requestsTotal.WithLabelValues(method, routeKey, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(routeKey).Observe(time.Since(start).Seconds())
}
