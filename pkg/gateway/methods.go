package gateway

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/tracing"
	"github.com/voxgate/voxgate/pkg/agentforce"
	"github.com/voxgate/voxgate/pkg/bridge"
	"github.com/voxgate/voxgate/pkg/speech"
)

// Built-in RPC method names.
const (
	MethodConverse   = "voice.converse"
	MethodTranscribe = "voice.transcribe"
	MethodSpeak      = "voice.speak"
	MethodTurn       = "voice.turn"
	MethodReset      = "conversation.reset"
	MethodStatus     = "status.get"
)

// VoiceBridge is the turn surface the gateway drives. Satisfied by
// *bridge.Bridge.
type VoiceBridge interface {
	Converse(ctx context.Context, conversationID, text string) (*bridge.ConverseResult, error)
	Transcribe(ctx context.Context, audioInput string) (string, error)
	Speak(ctx context.Context, text string) (*bridge.SpeakResult, error)
	VoiceTurn(ctx context.Context, conversationID, audioInput string) (*bridge.TurnResult, error)
	Reset(ctx context.Context, conversationID string) (bool, error)
}

// StatusFunc supplies the daemon-level status payload for status.get.
type StatusFunc func() map[string]interface{}

// rpcErrorFor maps bridge and upstream failures onto RPC error codes: bad
// input is the caller's fault, missing configuration and upstream outages
// are operational states the front end can message differently.
func rpcErrorFor(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	if errors.Is(err, config.ErrNotConfigured) {
		return &RPCError{Code: NotConfigured, Message: err.Error()}
	}
	if errors.Is(err, bridge.ErrNoSpeech) {
		return &RPCError{Code: InvalidParams, Message: err.Error()}
	}

	var authErr *agentforce.AuthError
	var sessionErr *agentforce.SessionError
	var messageErr *agentforce.MessageError
	var apiErr *speech.APIError
	if errors.As(err, &authErr) || errors.As(err, &sessionErr) || errors.As(err, &messageErr) || errors.As(err, &apiErr) {
		return &RPCError{Code: UpstreamUnavailable, Message: err.Error()}
	}

	return &RPCError{Code: InternalError, Message: err.Error()}
}

// registerBuiltinMethods wires the voice surface into the RPC router.
func (s *Server) registerBuiltinMethods() {
	_ = s.router.RegisterMethod(MethodConverse, s.handleConverse)
	_ = s.router.RegisterMethod(MethodTranscribe, s.handleTranscribe)
	_ = s.router.RegisterMethod(MethodSpeak, s.handleSpeak)
	_ = s.router.RegisterMethod(MethodTurn, s.handleTurn)
	_ = s.router.RegisterMethod(MethodReset, s.handleReset)
	_ = s.router.RegisterMethod(MethodStatus, s.handleStatus)
}

func (s *Server) methodLogger(ctx context.Context) zerolog.Logger {
	logger := tracing.LoggerFromContext(ctx, s.logger)
	if clientID := clientIDFromContext(ctx); clientID != "" {
		logger = logger.With().Str("clientId", clientID).Logger()
	}
	if transport := transportFromContext(ctx); transport != "" {
		logger = logger.With().Str("transport", transport).Logger()
	}
	return logger
}

func (s *Server) handleConverse(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if err := validateParams(MethodConverse, params); err != nil {
		return nil, err
	}
	conversationID := stringParam(params, "conversationId")
	text := stringParam(params, "text")
	if conversationID == "" || text == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "conversationId and text must be non-empty"}
	}

	logger := s.methodLogger(ctx)
	logger.Info().Str("conversation", conversationID).Msg("Converse request")

	result, err := s.bridge.Converse(ctx, conversationID, text)
	if err != nil {
		return nil, rpcErrorFor(err)
	}

	return map[string]interface{}{
		"conversationId": result.ConversationID,
		"agentResponse":  result.AgentResponse,
		"nextSequenceId": result.NextSequenceID,
		"source":         result.Source,
	}, nil
}

func (s *Server) handleTranscribe(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if err := validateParams(MethodTranscribe, params); err != nil {
		return nil, err
	}
	audio := stringParam(params, "audio")
	if audio == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "audio must be non-empty"}
	}

	text, err := s.bridge.Transcribe(ctx, audio)
	if err != nil {
		return nil, rpcErrorFor(err)
	}

	return map[string]interface{}{"text": text}, nil
}

func (s *Server) handleSpeak(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if err := validateParams(MethodSpeak, params); err != nil {
		return nil, err
	}
	text := stringParam(params, "text")
	if text == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "text must be non-empty"}
	}

	result, err := s.bridge.Speak(ctx, text)
	if err != nil {
		return nil, rpcErrorFor(err)
	}

	return map[string]interface{}{
		"audio":       result.Audio,
		"contentType": result.ContentType,
	}, nil
}

func (s *Server) handleTurn(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if err := validateParams(MethodTurn, params); err != nil {
		return nil, err
	}
	conversationID := stringParam(params, "conversationId")
	audio := stringParam(params, "audio")
	if conversationID == "" || audio == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "conversationId and audio must be non-empty"}
	}

	logger := s.methodLogger(ctx)
	logger.Info().Str("conversation", conversationID).Msg("Voice turn request")

	result, err := s.bridge.VoiceTurn(ctx, conversationID, audio)
	if err != nil {
		return nil, rpcErrorFor(err)
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
	return payload, nil
}

func (s *Server) handleReset(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	if err := validateParams(MethodReset, params); err != nil {
		return nil, err
	}
	conversationID := stringParam(params, "conversationId")
	if conversationID == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "conversationId must be non-empty"}
	}

	existed, err := s.bridge.Reset(ctx, conversationID)
	if err != nil {
		return nil, rpcErrorFor(err)
	}

	return map[string]interface{}{
		"reset":   true,
		"existed": existed,
	}, nil
}

func (s *Server) handleStatus(_ context.Context, params map[string]interface{}) (interface{}, error) {
	if err := validateParams(MethodStatus, params); err != nil {
		return nil, err
	}

	status := map[string]interface{}{}
	if s.status != nil {
		status = s.status()
	}
	status["clients"] = s.clients.Count()
	return status, nil
}
