package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voxgate/voxgate/internal/observability"
	"github.com/voxgate/voxgate/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// Transcription uploads whole clips, so it gets the long budget.
	transcribeTimeout = 120 * time.Second
	chatTimeout       = 60 * time.Second
	synthesizeTimeout = 60 * time.Second

	defaultTranscribeModel = "whisper-1"
	defaultChatModel       = "gpt-4o-mini"
	defaultTTSModel        = "tts-1"
	defaultTTSVoice        = "alloy"
	defaultTTSFormat       = "mp3"
)

// SettingsProvider yields the current provider settings for a request.
// Implementations return a not-configured error when the integration is
// disabled or incomplete.
type SettingsProvider func() (Settings, error)

// Client calls an OpenAI-compatible speech API. It is safe for concurrent
// use.
type Client struct {
	settings   SettingsProvider
	httpClient *http.Client
}

// NewClient creates a Client that fetches settings from provider on each
// request.
func NewClient(provider SettingsProvider) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("settings provider is required")
	}

	observability.EnsureRegistered()

	return &Client{
		settings:   provider,
		httpClient: &http.Client{},
	}, nil
}

// Transcribe uploads an audio clip and returns the recognized text.
// mimeType picks the upload filename extension the provider sniffs the
// container format from; empty means DefaultMIME.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcript, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio payload is empty")
	}

	settings, err := c.settings()
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"voxgate.speech",
		"speech.transcribe",
		attribute.Int("audio_bytes", len(audio)),
	)
	defer span.End()

	model := settings.TranscribeModel
	if model == "" {
		model = defaultTranscribeModel
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "audio."+ExtensionForMIME(mimeType))
	if err != nil {
		return nil, fmt.Errorf("failed to build transcription form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to write audio to form: %w", err)
	}
	fields := map[string]string{
		"model":           model,
		"response_format": "json",
		"temperature":     "0",
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize transcription form: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL(settings.Endpoint, "/audio/transcriptions"), &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+settings.APIKey)

	start := time.Now()
	body, _, err := c.do(req)
	observability.RecordSpeechRequest("transcribe", time.Since(start), err == nil)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return nil, err
	}

	var tr transcriptionResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &APIError{Status: http.StatusOK, Message: fmt.Sprintf("malformed transcription response: %v", err)}
	}

	log.Debug().Int("audio_bytes", len(audio)).Int("text_len", len(tr.Text)).Msg("Audio transcribed")
	return &Transcript{Text: tr.Text}, nil
}

// Complete runs one chat completion over the given messages and returns the
// assistant's text.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}

	settings, err := c.settings()
	if err != nil {
		return "", err
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"voxgate.speech",
		"speech.complete",
		attribute.Int("messages", len(messages)),
	)
	defer span.End()

	model := settings.ChatModel
	if model == "" {
		model = defaultChatModel
	}

	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   settings.MaxTokens,
		Temperature: settings.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL(settings.Endpoint, "/chat/completions"), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+settings.APIKey)

	start := time.Now()
	body, _, err := c.do(req)
	observability.RecordSpeechRequest("chat", time.Since(start), err == nil)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return "", err
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", &APIError{Status: http.StatusOK, Message: fmt.Sprintf("malformed chat response: %v", err)}
	}
	if len(cr.Choices) == 0 {
		return "", &APIError{Status: http.StatusOK, Message: "no choices in response"}
	}

	return cr.Choices[0].Message.Content, nil
}

// Synthesize renders text to speech audio.
func (c *Client) Synthesize(ctx context.Context, text string) (*Synthesis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesis text cannot be empty")
	}

	settings, err := c.settings()
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"voxgate.speech",
		"speech.synthesize",
		attribute.Int("text_len", len(text)),
	)
	defer span.End()

	model := settings.TTSModel
	if model == "" {
		model = defaultTTSModel
	}
	voice := settings.TTSVoice
	if voice == "" {
		voice = defaultTTSVoice
	}
	format := settings.TTSFormat
	if format == "" {
		format = defaultTTSFormat
	}

	payload, err := json.Marshal(speechRequest{
		Model:          model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode synthesis request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, synthesizeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL(settings.Endpoint, "/audio/speech"), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+settings.APIKey)

	start := time.Now()
	body, contentType, err := c.do(req)
	observability.RecordSpeechRequest("tts", time.Since(start), err == nil)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return nil, err
	}
	if len(body) == 0 {
		return nil, &APIError{Status: http.StatusOK, Message: "synthesis returned no audio"}
	}

	if contentType == "" {
		contentType = mimeForFormat(format)
	}

	log.Debug().Int("audio_bytes", len(body)).Str("format", format).Msg("Speech synthesized")
	return &Synthesis{Audio: body, ContentType: contentType}, nil
}

// do sends the request and returns the body and Content-Type for 2xx
// answers, or an *APIError built from the provider's error envelope.
func (c *Client) do(req *http.Request) ([]byte, string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &APIError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &APIError{Status: resp.StatusCode, Message: providerMessage(resp.StatusCode, body)}
	}

	contentType, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return body, strings.TrimSpace(contentType), nil
}

func apiURL(endpoint, path string) string {
	return strings.TrimRight(endpoint, "/") + path
}

// mimeForFormat labels synthesized audio when the provider omits
// Content-Type.
func mimeForFormat(format string) string {
	switch strings.ToLower(format) {
	case "mp3":
		return "audio/mpeg"
	case "opus":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/pcm"
	default:
		return "application/octet-stream"
	}
}
