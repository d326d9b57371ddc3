package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// TurnIDKey is the context key for turn ID
	TurnIDKey ContextKey = "turn_id"
	// ConversationKeyKey is the context key for the conversation key
	ConversationKeyKey ContextKey = "conversation_key"
	// RequestIDKey is the context key for request ID (for idempotency)
	RequestIDKey ContextKey = "request_id"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID         string
	TurnID          string
	ConversationKey string
	RequestID       string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewTurnID generates a new turn ID
func NewTurnID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithTurnID adds a turn ID to the context
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, TurnIDKey, turnID)
}

// WithConversationKey adds a conversation key to the context
func WithConversationKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ConversationKeyKey, key)
}

// WithRequestID adds a request ID to the context for idempotency
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetTurnID retrieves the turn ID from the context
func GetTurnID(ctx context.Context) string {
	if turnID, ok := ctx.Value(TurnIDKey).(string); ok {
		return turnID
	}
	return ""
}

// GetConversationKey retrieves the conversation key from the context
func GetConversationKey(ctx context.Context) string {
	if key, ok := ctx.Value(ConversationKeyKey).(string); ok {
		return key
	}
	return ""
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:         GetTraceID(ctx),
		TurnID:          GetTurnID(ctx),
		ConversationKey: GetConversationKey(ctx),
		RequestID:       GetRequestID(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.TurnID != "" {
		ctx = WithTurnID(ctx, tc.TurnID)
	}
	if tc.ConversationKey != "" {
		ctx = WithConversationKey(ctx, tc.ConversationKey)
	}
	if tc.RequestID != "" {
		ctx = WithRequestID(ctx, tc.RequestID)
	}
	return ctx
}

// NewRequestContext creates a new context for a request with a new trace ID
func NewRequestContext(ctx context.Context) context.Context {
	return WithTraceID(ctx, NewTraceID())
}

// NewTurnContext creates a context for one conversation turn. It keeps the
// trace ID from the parent, generating one if absent, and assigns a fresh
// turn ID.
func NewTurnContext(ctx context.Context, conversationKey string) context.Context {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = NewTraceID()
	}
	ctx = WithTraceID(ctx, traceID)
	ctx = WithTurnID(ctx, NewTurnID())
	if conversationKey != "" {
		ctx = WithConversationKey(ctx, conversationKey)
	}
	return ctx
}
