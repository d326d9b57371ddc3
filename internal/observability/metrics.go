package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Voice turns wait on transcription and a remote agent, so the duration
// buckets stretch well past the prometheus defaults.
var turnBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

type moduleMetrics struct {
	authRefreshTotal     *prometheus.CounterVec
	sessionCreateTotal   *prometheus.CounterVec
	agentMessageTotal    *prometheus.CounterVec
	agentMessageDuration prometheus.Histogram
	fallbackTotal        *prometheus.CounterVec

	activeConversations   prometheus.Gauge
	conversationEvictions prometheus.Counter

	speechRequestTotal    *prometheus.CounterVec
	speechRequestDuration *prometheus.HistogramVec

	upstreamReachable *prometheus.GaugeVec

	httpRequestTotal    *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	gatewayConnections  prometheus.Gauge
	gatewayRequestTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			authRefreshTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "auth_refresh_total",
					Help: "Total access token exchanges by status.",
				},
				[]string{"status"},
			),
			sessionCreateTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "session_create_total",
					Help: "Total agent session creations by endpoint and status.",
				},
				[]string{"endpoint", "status"},
			),
			agentMessageTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_message_total",
					Help: "Total agent message deliveries by status.",
				},
				[]string{"status"},
			),
			agentMessageDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "agent_message_duration_seconds",
					Help:    "Agent message round trip duration in seconds.",
					Buckets: turnBuckets,
				},
			),
			fallbackTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "fallback_total",
					Help: "Total in-turn fallbacks by kind (reauth, resession, alternate).",
				},
				[]string{"kind"},
			),
			activeConversations: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_conversations",
					Help: "Current tracked conversation count.",
				},
			),
			conversationEvictions: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "conversation_evictions_total",
					Help: "Total conversations dropped for idleness.",
				},
			),
			speechRequestTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "speech_request_total",
					Help: "Total speech provider requests by operation and status.",
				},
				[]string{"operation", "status"},
			),
			speechRequestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "speech_request_duration_seconds",
					Help:    "Speech provider request duration in seconds by operation.",
					Buckets: turnBuckets,
				},
				[]string{"operation"},
			),
			upstreamReachable: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "upstream_reachable",
					Help: "Upstream reachability by target (1 reachable, 0 not).",
				},
				[]string{"target"},
			),
			httpRequestTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_request_total",
					Help: "Total HTTP API requests by path and status code.",
				},
				[]string{"path", "status"},
			),
			httpRequestDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP API request duration in seconds by path.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"path"},
			),
			gatewayConnections: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "gateway_connections",
					Help: "Current WebSocket gateway connection count.",
				},
			),
			gatewayRequestTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "gateway_request_total",
					Help: "Total gateway RPC requests by method and status.",
				},
				[]string{"method", "status"},
			),
		}

		prometheus.MustRegister(
			m.authRefreshTotal,
			m.sessionCreateTotal,
			m.agentMessageTotal,
			m.agentMessageDuration,
			m.fallbackTotal,
			m.activeConversations,
			m.conversationEvictions,
			m.speechRequestTotal,
			m.speechRequestDuration,
			m.upstreamReachable,
			m.httpRequestTotal,
			m.httpRequestDuration,
			m.gatewayConnections,
			m.gatewayRequestTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func RecordAuthRefresh(success bool) {
	getMetrics().authRefreshTotal.WithLabelValues(statusLabel(success)).Inc()
}

func RecordSessionCreate(endpoint string, success bool) {
	getMetrics().sessionCreateTotal.WithLabelValues(endpoint, statusLabel(success)).Inc()
}

func RecordAgentMessage(duration time.Duration, success bool) {
	m := getMetrics()
	m.agentMessageTotal.WithLabelValues(statusLabel(success)).Inc()
	m.agentMessageDuration.Observe(duration.Seconds())
}

func RecordFallback(kind string) {
	getMetrics().fallbackTotal.WithLabelValues(kind).Inc()
}

func SetActiveConversations(count int) {
	getMetrics().activeConversations.Set(float64(count))
}

func RecordConversationEvictions(count int) {
	if count <= 0 {
		return
	}
	getMetrics().conversationEvictions.Add(float64(count))
}

func RecordSpeechRequest(operation string, duration time.Duration, success bool) {
	m := getMetrics()
	m.speechRequestTotal.WithLabelValues(operation, statusLabel(success)).Inc()
	m.speechRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func SetUpstreamReachable(target string, reachable bool) {
	value := 0.0
	if reachable {
		value = 1.0
	}
	getMetrics().upstreamReachable.WithLabelValues(target).Set(value)
}

func RecordHTTPRequest(path string, statusCode int, duration time.Duration) {
	m := getMetrics()
	m.httpRequestTotal.WithLabelValues(path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

func SetGatewayConnections(count int) {
	getMetrics().gatewayConnections.Set(float64(count))
}

func RecordGatewayRequest(method string, success bool) {
	getMetrics().gatewayRequestTotal.WithLabelValues(method, statusLabel(success)).Inc()
}
