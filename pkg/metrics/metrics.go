package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors for the call backend.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	wsConnections   prometheus.Gauge
	signalsRelayed  *prometheus.CounterVec
	signalsDropped  *prometheus.CounterVec
	callTransitions *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "echolink_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "echolink_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "echolink_ws_connections",
			Help: "Currently registered websocket connections.",
		}),
		signalsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "echolink_signals_relayed_total",
			Help: "Signaling messages relayed to a peer, by type.",
		}, []string{"type"}),
		signalsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "echolink_signals_dropped_total",
			Help: "Signaling messages dropped, by reason.",
		}, []string{"reason"}),
		callTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "echolink_call_transitions_total",
			Help: "Persisted call status transitions.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.wsConnections,
		m.signalsRelayed,
		m.signalsDropped,
		m.callTransitions,
	)
	return m
}

func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) ConnectionOpened() {
	m.wsConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	m.wsConnections.Dec()
}

func (m *Metrics) SignalRelayed(msgType string) {
	m.signalsRelayed.WithLabelValues(msgType).Inc()
}

func (m *Metrics) SignalDropped(reason string) {
	m.signalsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) CallTransition(status string) {
	m.callTransitions.WithLabelValues(status).Inc()
}
