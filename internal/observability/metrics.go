package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private prometheus registry. A nil *Metrics records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	messages        *prometheus.CounterVec
	credits         *prometheus.CounterVec
	sessions        *prometheus.CounterVec
	invitations     *prometheus.CounterVec
	pollHints       *prometheus.CounterVec
}

// NewMetrics registers the service collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by route and error code.",
		}, []string{"path", "method", "code"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_appended_total",
			Help: "Messages appended by sender kind.",
		}, []string{"sender_kind"}),
		credits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_credits_total",
			Help: "Credits moved through the ledger by direction.",
		}, []string{"direction"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_sessions_total",
			Help: "Session transitions.",
		}, []string{"transition"}),
		invitations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_invitations_total",
			Help: "Invitation operations by outcome.",
		}, []string{"operation", "outcome"}),
		pollHints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_poll_hint_total",
			Help: "Poll hint lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.errors,
		m.messages,
		m.credits,
		m.sessions,
		m.invitations,
		m.pollHints,
	)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

func (m *Metrics) MessageAppended(senderKind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(senderKind).Inc()
}

// CreditsMoved records amount under direction ("debit" or "credit").
func (m *Metrics) CreditsMoved(direction string, amount int64) {
	if m == nil {
		return
	}
	m.credits.WithLabelValues(direction).Add(float64(amount))
}

func (m *Metrics) SessionTransition(transition string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(transition).Inc()
}

func (m *Metrics) InvitationOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.invitations.WithLabelValues(operation, outcome).Inc()
}

// PollHint records "hit" when a poll was answered from the hint, "miss"
// otherwise, and "error" when the hint could not be read.
func (m *Metrics) PollHint(result string) {
	if m == nil {
		return
	}
	m.pollHints.WithLabelValues(result).Inc()
}
