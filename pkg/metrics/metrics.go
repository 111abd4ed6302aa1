// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks gateway HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total gateway HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// BackendRequestDuration tracks calls to the ChatBees service.
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbees_backend_request_duration_seconds",
			Help:    "ChatBees API call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"endpoint", "outcome"},
	)

	// BackendRequestsTotal tracks total calls to the ChatBees service.
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbees_backend_requests_total",
			Help: "Total ChatBees API calls",
		},
		[]string{"endpoint", "outcome"},
	)

	// MessagesAppended tracks messages appended to conversation logs.
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_messages_appended_total",
			Help: "Messages appended to conversation logs",
		},
		[]string{"role"},
	)

	// SessionsActive tracks chat sessions held by the gateway.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Number of active chat sessions",
		},
	)

	// SSEConnectionsActive tracks open transcript streams.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// TranscriptPublished tracks messages mirrored to the transcript stream.
	TranscriptPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcript_messages_published_total",
			Help: "Messages published to the transcript stream",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for a gateway HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordBackendCall records metrics for a ChatBees API call.
func RecordBackendCall(endpoint, outcome string, duration float64) {
	BackendRequestDuration.WithLabelValues(endpoint, outcome).Observe(duration)
	BackendRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordAppend records a message appended to a conversation log.
func RecordAppend(role string) {
	MessagesAppended.WithLabelValues(role).Inc()
}

// IncrementSessions increments the active session count.
func IncrementSessions() {
	SessionsActive.Inc()
}

// DecrementSessions decrements the active session count.
func DecrementSessions() {
	SessionsActive.Dec()
}

// IncrementSSEConnections increments active SSE connections.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements active SSE connections.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
