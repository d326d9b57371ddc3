package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/observability"
	"github.com/voxgate/voxgate/internal/tracing"
	"github.com/voxgate/voxgate/pkg/agentforce"
	"github.com/voxgate/voxgate/pkg/speech"
)

// ErrNoSpeech reports an audio clip that transcribed to nothing. Surfaces
// treat it as bad input, not an upstream failure.
var ErrNoSpeech = errors.New("no speech recognized in audio")

// Turn sources, reported so front ends can tell an agent answer from the
// chat fallback.
const (
	SourceAgentforce = "agentforce"
	SourceSpeech     = "speech"
)

// fallbackSystemPrompt frames the chat model when the agent platform is not
// configured. Kept short so answers stay speakable.
const fallbackSystemPrompt = "You are a helpful voice assistant. Answer briefly in plain spoken language."

// AgentClient is the conversation surface the bridge drives. Satisfied by
// *agentforce.Client.
type AgentClient interface {
	SendMessage(ctx context.Context, conversationKey, text string) (*agentforce.Reply, error)
	Reset(conversationKey string) bool
	ResetAll() int
	ActiveConversations() int
}

// SpeechClient is the speech surface the bridge drives. Satisfied by
// *speech.Client.
type SpeechClient interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*speech.Transcript, error)
	Complete(ctx context.Context, messages []speech.Message) (string, error)
	Synthesize(ctx context.Context, text string) (*speech.Synthesis, error)
}

// EventEmitterFunc receives turn lifecycle events for broadcast to
// subscribed front ends.
type EventEmitterFunc func(ctx context.Context, evt TurnEvent)

// TurnEvent is one broadcastable moment in a turn.
type TurnEvent struct {
	Event          string
	ConversationID string
	Text           string
	Source         string
	SequenceID     int64
}

// Turn event names.
const (
	EventTranscript = "turn.transcript"
	EventReply      = "turn.reply"
)

// Config wires a Bridge.
type Config struct {
	Agent  AgentClient
	Speech SpeechClient
	Store  *config.Store
	Logger zerolog.Logger
}

// Bridge runs voice turns. Safe for concurrent use.
type Bridge struct {
	agent  AgentClient
	speech SpeechClient
	store  *config.Store
	logger zerolog.Logger

	emitter EventEmitterFunc
}

// ConverseResult is one delivered text turn.
type ConverseResult struct {
	ConversationID string
	AgentResponse  string
	NextSequenceID int64
	Source         string
}

// SpeakResult is synthesized audio ready for the browser.
type SpeakResult struct {
	Audio       string // data URI
	ContentType string
}

// TurnResult is one full voice turn. Audio is empty when synthesis was
// skipped or degraded.
type TurnResult struct {
	ConversationID string
	Transcript     string
	AgentResponse  string
	NextSequenceID int64
	Source         string
	Audio          string // data URI
	ContentType    string
}

// New creates a Bridge.
func New(cfg Config) (*Bridge, error) {
	if cfg.Agent == nil {
		return nil, fmt.Errorf("agent client is required")
	}
	if cfg.Speech == nil {
		return nil, fmt.Errorf("speech client is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("config store is required")
	}

	observability.EnsureRegistered()

	return &Bridge{
		agent:  cfg.Agent,
		speech: cfg.Speech,
		store:  cfg.Store,
		logger: cfg.Logger.With().Str("component", "bridge").Logger(),
	}, nil
}

// SetEventEmitter routes turn events to fn. Pass nil to silence them.
func (b *Bridge) SetEventEmitter(fn EventEmitterFunc) {
	b.emitter = fn
}

func (b *Bridge) emit(ctx context.Context, evt TurnEvent) {
	if b.emitter != nil {
		b.emitter(ctx, evt)
	}
}

// Converse delivers one text utterance and returns the answer. The agent
// platform handles the turn when configured; otherwise the speech provider's
// chat model answers statelessly as a fallback.
func (b *Bridge) Converse(ctx context.Context, conversationID, text string) (*ConverseResult, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("conversationId is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	ctx = tracing.NewTurnContext(ctx, conversationID)

	cfg, err := b.store.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var result *ConverseResult
	if agentErr := cfg.Agentforce.Check(); agentErr == nil {
		reply, err := b.agent.SendMessage(ctx, conversationID, text)
		if err != nil {
			observability.RecordTurnAudit(ctx, conversationID, "failure", map[string]interface{}{
				"source": SourceAgentforce,
				"error":  err.Error(),
			})
			return nil, err
		}
		result = &ConverseResult{
			ConversationID: conversationID,
			AgentResponse:  reply.Text,
			NextSequenceID: reply.NextSequenceID,
			Source:         SourceAgentforce,
		}
	} else {
		if speechErr := cfg.Speech.Check(); speechErr != nil {
			// Neither integration can take the turn.
			return nil, agentErr
		}

		observability.RecordFallback("chat")
		b.logger.Debug().Str("conversation", conversationID).Msg("Agent platform not configured, using chat fallback")

		answer, err := b.speech.Complete(ctx, []speech.Message{
			{Role: "system", Content: fallbackSystemPrompt},
			{Role: "user", Content: text},
		})
		if err != nil {
			observability.RecordTurnAudit(ctx, conversationID, "failure", map[string]interface{}{
				"source": SourceSpeech,
				"error":  err.Error(),
			})
			return nil, err
		}
		result = &ConverseResult{
			ConversationID: conversationID,
			AgentResponse:  answer,
			Source:         SourceSpeech,
		}
	}

	observability.RecordTurnAudit(ctx, conversationID, "success", map[string]interface{}{
		"source": result.Source,
	})
	b.emit(ctx, TurnEvent{
		Event:          EventReply,
		ConversationID: conversationID,
		Text:           result.AgentResponse,
		Source:         result.Source,
		SequenceID:     result.NextSequenceID,
	})

	return result, nil
}

// Transcribe decodes a browser audio payload and returns its text.
func (b *Bridge) Transcribe(ctx context.Context, audioInput string) (string, error) {
	data, mimeType, err := speech.DecodeAudioInput(audioInput)
	if err != nil {
		return "", err
	}

	transcript, err := b.speech.Transcribe(ctx, data, mimeType)
	if err != nil {
		return "", err
	}
	return transcript.Text, nil
}

// Speak renders text to audio and wraps it in a data URI.
func (b *Bridge) Speak(ctx context.Context, text string) (*SpeakResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	synthesis, err := b.speech.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	return &SpeakResult{
		Audio:       speech.EncodeDataURI(synthesis.Audio, synthesis.ContentType),
		ContentType: synthesis.ContentType,
	}, nil
}

// VoiceTurn runs a full turn: decode, transcribe, converse, synthesize. A
// synthesis failure degrades the turn to a text-only result instead of
// failing it.
func (b *Bridge) VoiceTurn(ctx context.Context, conversationID, audioInput string) (*TurnResult, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("conversationId is required")
	}

	ctx = tracing.NewTurnContext(ctx, conversationID)
	logger := tracing.LoggerFromContext(ctx, b.logger).With().Str("conversation", conversationID).Logger()

	transcript, err := b.Transcribe(ctx, audioInput)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrNoSpeech
	}

	b.emit(ctx, TurnEvent{
		Event:          EventTranscript,
		ConversationID: conversationID,
		Text:           transcript,
	})

	converse, err := b.Converse(ctx, conversationID, transcript)
	if err != nil {
		return nil, err
	}

	result := &TurnResult{
		ConversationID: conversationID,
		Transcript:     transcript,
		AgentResponse:  converse.AgentResponse,
		NextSequenceID: converse.NextSequenceID,
		Source:         converse.Source,
	}

	cfg, err := b.store.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Speech.Check() == nil {
		synthesis, err := b.speech.Synthesize(ctx, converse.AgentResponse)
		if err != nil {
			// Text still made it through; the front end can render it.
			observability.RecordFallback("tts_degraded")
			logger.Warn().Err(err).Msg("Synthesis failed, returning text-only reply")
		} else {
			result.Audio = speech.EncodeDataURI(synthesis.Audio, synthesis.ContentType)
			result.ContentType = synthesis.ContentType
		}
	}

	return result, nil
}

// Reset drops cached conversation state for a key. Reports whether state
// existed.
func (b *Bridge) Reset(ctx context.Context, conversationID string) (bool, error) {
	if strings.TrimSpace(conversationID) == "" {
		return false, fmt.Errorf("conversationId is required")
	}

	existed := b.agent.Reset(conversationID)
	observability.RecordSessionAudit(ctx, "reset", conversationID, "success", map[string]interface{}{
		"existed": existed,
	})
	b.logger.Info().Str("conversation", conversationID).Bool("existed", existed).Msg("Conversation reset")
	return existed, nil
}

// ResetAll drops every cached conversation. Used when credentials change.
func (b *Bridge) ResetAll(ctx context.Context) int {
	dropped := b.agent.ResetAll()
	if dropped > 0 {
		observability.RecordSessionAudit(ctx, "reset_all", "bridge", "success", map[string]interface{}{
			"dropped": dropped,
		})
		b.logger.Info().Int("dropped", dropped).Msg("All conversations reset")
	}
	return dropped
}

// ActiveConversations reports the number of cached conversations.
func (b *Bridge) ActiveConversations() int {
	return b.agent.ActiveConversations()
}
