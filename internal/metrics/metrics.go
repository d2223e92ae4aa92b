package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Sessions
	SessionsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geneticai_sessions_opened_total",
			Help: "Total number of chat sessions opened",
		},
	)
	SessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geneticai_sessions_expired_total",
			Help: "Total number of chat sessions reaped after the idle timeout",
		},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geneticai_sessions_active",
			Help: "Current number of live chat sessions",
		},
	)

	// Agent runs
	AgentRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geneticai_agent_requests_total",
			Help: "Agents API requests by operation",
		},
		[]string{"op"}, // op: get_agent|create_thread|create_message|create_run|get_run|list_messages
	)
	RunsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geneticai_agent_runs_total",
			Help: "Agent runs by terminal status",
		},
		[]string{"status"},
	)
	RunDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geneticai_agent_run_duration_seconds",
			Help:    "Histogram of agent run durations in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s..128s
		},
	)

	// Websockets
	WebsocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geneticai_ws_connections",
			Help: "Current number of open websocket connections",
		},
	)

	// HTTP
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geneticai_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geneticai_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)
	HTTPErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geneticai_http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geneticai_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsOpened,
		SessionsExpired,
		ActiveSessions,
		AgentRequests,
		RunsCompleted,
		RunDurationSeconds,
		WebsocketConnections,
		HTTPRequestDuration,
		HTTPRequests,
		HTTPErrors,
		Errors,
	)
}

func IncSessionOpened() {
	SessionsOpened.Inc()
}

func IncSessionExpired() {
	SessionsExpired.Inc()
}

func SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}

func IncAgentRequest(op string) {
	AgentRequests.WithLabelValues(op).Inc()
}

func IncRunCompleted(status string) {
	RunsCompleted.WithLabelValues(status).Inc()
}

func ObserveRunDuration(d time.Duration) {
	RunDurationSeconds.Observe(d.Seconds())
}

func IncWSConnections() {
	WebsocketConnections.Inc()
}

func DecWSConnections() {
	WebsocketConnections.Dec()
}

func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
