package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/observability"
	"github.com/voxgate/voxgate/internal/tracing"
	"github.com/voxgate/voxgate/pkg/agentforce"
	"github.com/voxgate/voxgate/pkg/bridge"
	"github.com/voxgate/voxgate/pkg/speech"
)

// maxBodyBytes caps request bodies. Base64 audio clips are the largest
// payloads this surface accepts.
const maxBodyBytes = 25 << 20

// Server is the HTTP API server
type Server struct {
	options        ServerOptions
	server         *http.Server
	rateLimiter    *RateLimiter
	bridge         Bridge
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a new HTTP API server
func NewServer(options ServerOptions, voiceBridge Bridge, logger zerolog.Logger) (*Server, error) {
	if options.Port == 0 {
		options.Port = 3000
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 100
	}

	if options.SharedSecret == "" {
		return nil, fmt.Errorf("shared secret is required")
	}
	if voiceBridge == nil {
		return nil, fmt.Errorf("voice bridge is required")
	}

	return &Server{
		options:     options,
		rateLimiter: NewRateLimiter(options.RateLimitPerMinute),
		bridge:      voiceBridge,
		logger:      logger,
		startTime:   time.Now(),
	}, nil
}

// Start starts the HTTP API server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/converse", s.endpoint("/api/v1/converse", s.handleConverse))
	mux.HandleFunc("/api/v1/transcribe", s.endpoint("/api/v1/transcribe", s.handleTranscribe))
	mux.HandleFunc("/api/v1/speak", s.endpoint("/api/v1/speak", s.handleSpeak))
	mux.HandleFunc("/api/v1/turn", s.endpoint("/api/v1/turn", s.handleTurn))

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: mux,
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting HTTP API server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP API server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP API server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down HTTP API server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	s.rateLimiter.Stop()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP API server: %w", err)
	}

	s.logger.Info().Msg("HTTP API server stopped")
	return nil
}

// handleHealth handles health check requests. Unauthenticated so load
// balancers can poll it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).Seconds(),
		"timestamp": time.Now().UnixMilli(),
	})
}

// endpoint wraps a voice handler with the shared request plumbing:
// shutdown check, in-flight tracking, rate limiting, bearer auth, trace
// propagation and metrics.
func (s *Server) endpoint(path string, handler func(ctx context.Context, w *statusWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			s.writeError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}
		s.shutdownMu.RUnlock()

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		sw := &statusWriter{ResponseWriter: w}
		defer func() {
			observability.RecordHTTPRequest(path, sw.status, time.Since(startTime))
		}()

		if r.Method != http.MethodPost {
			s.writeError(sw, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		ip := s.getClientIP(r)
		if !s.rateLimiter.CheckLimit(ip) {
			retryAfter := s.rateLimiter.GetRetryAfter(ip)
			s.logger.Warn().
				Str("ip", ip).
				Str("path", path).
				Int("retryAfter", retryAfter).
				Msg("Rate limit exceeded")

			sw.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			s.writeError(sw, http.StatusTooManyRequests, "too many requests")
			return
		}

		if !s.authorized(r) {
			s.logger.Warn().
				Str("ip", ip).
				Str("path", path).
				Msg("Unauthorized request")
			s.writeError(sw, http.StatusUnauthorized, "unauthorized")
			return
		}

		traceID := r.Header.Get("X-Trace-Id")
		if traceID == "" {
			traceID = tracing.NewTraceID()
		}
		ctx := tracing.WithTraceID(r.Context(), traceID)

		r.Body = http.MaxBytesReader(sw, r.Body, maxBodyBytes)
		handler(ctx, sw, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", path).
			Str("ip", ip).
			Int("status", sw.status).
			Int64("duration", time.Since(startTime).Milliseconds()).
			Msg("HTTP API request completed")
	}
}

// authorized checks the bearer token against the shared secret.
func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimPrefix(header, prefix)
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.options.SharedSecret)) == 1
}

func (s *Server) handleConverse(ctx context.Context, w *statusWriter, r *http.Request) {
	var req converseRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" || strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "conversationId and text must be non-empty")
		return
	}

	result, err := s.bridge.Converse(ctx, req.ConversationID, req.Text)
	if err != nil {
		s.writeBridgeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversationId": result.ConversationID,
		"agentResponse":  result.AgentResponse,
		"nextSequenceId": result.NextSequenceID,
		"source":         result.Source,
	})
}

func (s *Server) handleTranscribe(ctx context.Context, w *statusWriter, r *http.Request) {
	var req transcribeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Audio) == "" {
		s.writeError(w, http.StatusBadRequest, "audio must be non-empty")
		return
	}

	text, err := s.bridge.Transcribe(ctx, req.Audio)
	if err != nil {
		s.writeBridgeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"text": text})
}

func (s *Server) handleSpeak(ctx context.Context, w *statusWriter, r *http.Request) {
	var req speakRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text must be non-empty")
		return
	}

	result, err := s.bridge.Speak(ctx, req.Text)
	if err != nil {
		s.writeBridgeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"audio":       result.Audio,
		"contentType": result.ContentType,
	})
}

func (s *Server) handleTurn(ctx context.Context, w *statusWriter, r *http.Request) {
	var req turnRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" || strings.TrimSpace(req.Audio) == "" {
		s.writeError(w, http.StatusBadRequest, "conversationId and audio must be non-empty")
		return
	}

	result, err := s.bridge.VoiceTurn(ctx, req.ConversationID, req.Audio)
	if err != nil {
		s.writeBridgeError(w, err)
		return
	}

	payload := map[string]interface{}{
		"conversationId": result.ConversationID,
		"transcript":     result.Transcript,
		"agentResponse":  result.AgentResponse,
		"nextSequenceId": result.NextSequenceID,
		"source":         result.Source,
	}
	if result.Audio != "" {
		payload["audio"] = result.Audio
		payload["contentType"] = result.ContentType
	}
	s.writeJSON(w, http.StatusOK, payload)
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func (s *Server) decodeBody(w *statusWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// writeBridgeError maps bridge failures onto HTTP status codes: missing
// configuration is 503, upstream failures are 502, bad input is 400.
func (s *Server) writeBridgeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var authErr *agentforce.AuthError
	var sessionErr *agentforce.SessionError
	var messageErr *agentforce.MessageError
	var apiErr *speech.APIError

	switch {
	case errors.Is(err, config.ErrNotConfigured):
		status = http.StatusServiceUnavailable
	case errors.Is(err, bridge.ErrNoSpeech):
		status = http.StatusBadRequest
	case errors.As(err, &authErr), errors.As(err, &sessionErr),
		errors.As(err, &messageErr), errors.As(err, &apiErr):
		status = http.StatusBadGateway
	}

	s.writeError(w, status, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorEnvelope{Error: errorDetail{Message: message}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// getClientIP extracts the client IP from the request
func (s *Server) getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// statusWriter records the status code written so the wrapper can log it
// and feed metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}
