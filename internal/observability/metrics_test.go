package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsHandler(t *testing.T) {
	// Touch every helper so each family appears in the scrape.
	RecordAuthRefresh(true)
	RecordAuthRefresh(false)
	RecordSessionCreate("primary", true)
	RecordSessionCreate("alternate", false)
	RecordAgentMessage(1200*time.Millisecond, true)
	RecordFallback("reauth")
	RecordFallback("resession")
	RecordFallback("alternate")
	SetActiveConversations(3)
	RecordConversationEvictions(2)
	RecordSpeechRequest("transcribe", 800*time.Millisecond, true)
	RecordSpeechRequest("tts", 400*time.Millisecond, false)
	SetUpstreamReachable("agent", true)
	SetUpstreamReachable("speech", false)
	RecordHTTPRequest("/api/v1/converse", http.StatusOK, 50*time.Millisecond)
	SetGatewayConnections(1)
	RecordGatewayRequest("voice.converse", true)

	handler := MetricsHandler()
	if handler == nil {
		t.Fatal("MetricsHandler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()

	expectedMetrics := []string{
		"auth_refresh_total",
		"session_create_total",
		"agent_message_total",
		"agent_message_duration_seconds",
		"fallback_total",
		"active_conversations",
		"conversation_evictions_total",
		"speech_request_total",
		"speech_request_duration_seconds",
		"upstream_reachable",
		"http_request_total",
		"http_request_duration_seconds",
		"gateway_connections",
		"gateway_request_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestUpstreamReachableValues(t *testing.T) {
	SetUpstreamReachable("agent", true)

	body := scrape(t)
	if !strings.Contains(body, `upstream_reachable{target="agent"} 1`) {
		t.Error("Expected agent upstream gauge to read 1")
	}

	SetUpstreamReachable("agent", false)

	body = scrape(t)
	if !strings.Contains(body, `upstream_reachable{target="agent"} 0`) {
		t.Error("Expected agent upstream gauge to read 0")
	}
}

func TestRecordConversationEvictionsIgnoresZero(t *testing.T) {
	before := counterValue(t, "conversation_evictions_total")

	RecordConversationEvictions(0)
	RecordConversationEvictions(-3)

	if got := counterValue(t, "conversation_evictions_total"); got != before {
		t.Errorf("Eviction counter moved from %s to %s on non-positive counts", before, got)
	}

	RecordConversationEvictions(4)

	if got := counterValue(t, "conversation_evictions_total"); got == before {
		t.Error("Eviction counter did not move on a positive count")
	}
}

func scrape(t *testing.T) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(w, req)
	return w.Body.String()
}

func counterValue(t *testing.T, name string) string {
	t.Helper()
	for _, line := range strings.Split(scrape(t), "\n") {
		if strings.HasPrefix(line, name+" ") {
			return strings.TrimPrefix(line, name+" ")
		}
	}
	return ""
}
