// Package metrics exposes portal counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jobmatch/jobmatch-portal/internal/session"
)

type Metrics struct {
	registry         *prometheus.Registry
	sessionEvents    *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "session_events_total",
			Help:      "Session lifecycle events by kind.",
		}, []string{"kind"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portal",
			Name:      "browser_sessions",
			Help:      "Browser sessions currently held in memory.",
		}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the marketplace API.",
		}, []string{"code", "method"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of marketplace API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sessionEvents,
		m.activeSessions,
		m.upstreamRequests,
		m.upstreamDuration,
	)
	return m
}

// ObserveSession is a session.Listener.
func (m *Metrics) ObserveSession(ev session.Event) {
	m.sessionEvents.WithLabelValues(string(ev.Kind)).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// InstrumentTransport counts and times requests made through rt.
func (m *Metrics) InstrumentTransport(rt http.RoundTripper) http.RoundTripper {
	return promhttp.InstrumentRoundTripperCounter(m.upstreamRequests,
		promhttp.InstrumentRoundTripperDuration(m.upstreamDuration, rt))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
