// Package observability exposes optional Prometheus instrumentation for the
// SDK. Instrumentation is opt-in: a nil *Metrics is valid everywhere and
// records nothing.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the instruments the SDK reports into. All instruments
// live on a private registry so two Metrics values never collide.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestRetries  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	WSMessages      *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	TokenExchanges  prometheus.Counter
}

// NewMetrics builds the instrument set under the given namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "API requests by method and status code.",
		}, []string{"method", "status"}),
		RequestRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "Retried attempts by method.",
		}, []string{"method"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Per-attempt request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "Websocket messages by direction and type.",
		}, []string{"direction", "type"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open websocket sessions.",
		}),
		TokenExchanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_exchanges_total",
			Help:      "Access token exchanges performed.",
		}),
	}
}

// Handler serves the metrics in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one completed attempt.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveRetry records one retried attempt.
func (m *Metrics) ObserveRetry(method string) {
	if m == nil {
		return
	}
	m.RequestRetries.WithLabelValues(method).Inc()
}

// ObserveWSMessage records one websocket message. Direction is "inbound"
// or "outbound"; typ is the wire discriminator.
func (m *Metrics) ObserveWSMessage(direction, typ string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, typ).Inc()
}

// SessionOpened bumps the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// TokenExchanged records one credential exchange.
func (m *Metrics) TokenExchanged() {
	if m == nil {
		return
	}
	m.TokenExchanges.Inc()
}
