package httpapi

import (
	"context"

	"github.com/voxgate/voxgate/pkg/bridge"
)

// Bridge is the subset of the voice bridge the HTTP surface drives.
// Satisfied by *bridge.Bridge.
type Bridge interface {
	Converse(ctx context.Context, conversationID, text string) (*bridge.ConverseResult, error)
	Transcribe(ctx context.Context, audioInput string) (string, error)
	Speak(ctx context.Context, text string) (*bridge.SpeakResult, error)
	VoiceTurn(ctx context.Context, conversationID, audioInput string) (*bridge.TurnResult, error)
}

// ServerOptions configures the HTTP API server
type ServerOptions struct {
	Port               int    // Server port (default: 3000)
	Host               string // Server host (default: "0.0.0.0")
	SharedSecret       string // Bearer token clients must present
	RateLimitPerMinute int    // Requests per minute per IP (default: 100)
}

type converseRequest struct {
	ConversationID string `json:"conversationId"`
	Text           string `json:"text"`
}

type transcribeRequest struct {
	Audio string `json:"audio"`
}

type speakRequest struct {
	Text string `json:"text"`
}

type turnRequest struct {
	ConversationID string `json:"conversationId"`
	Audio          string `json:"audio"`
}

// errorEnvelope is the JSON error body for every non-2xx response.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
}
