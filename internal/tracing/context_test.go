package tracing

import (
	"context"
	"testing"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	if id1 == "" {
		t.Error("NewTraceID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTraceID returned duplicate IDs")
	}
}

func TestNewTurnID(t *testing.T) {
	id1 := NewTurnID()
	id2 := NewTurnID()

	if id1 == "" {
		t.Error("NewTurnID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTurnID returned duplicate IDs")
	}
}

func TestWithTraceID(t *testing.T) {
	ctx := context.Background()
	traceID := "test-trace-id"

	ctx = WithTraceID(ctx, traceID)

	retrieved := GetTraceID(ctx)
	if retrieved != traceID {
		t.Errorf("Expected trace ID %s, got %s", traceID, retrieved)
	}
}

func TestWithTurnID(t *testing.T) {
	ctx := context.Background()
	turnID := "test-turn-id"

	ctx = WithTurnID(ctx, turnID)

	retrieved := GetTurnID(ctx)
	if retrieved != turnID {
		t.Errorf("Expected turn ID %s, got %s", turnID, retrieved)
	}
}

func TestWithConversationKey(t *testing.T) {
	ctx := context.Background()
	key := "caller-42"

	ctx = WithConversationKey(ctx, key)

	retrieved := GetConversationKey(ctx)
	if retrieved != key {
		t.Errorf("Expected conversation key %s, got %s", key, retrieved)
	}
}

func TestGetTraceIDEmpty(t *testing.T) {
	ctx := context.Background()

	traceID := GetTraceID(ctx)
	if traceID != "" {
		t.Errorf("Expected empty trace ID, got %s", traceID)
	}
}

func TestGetTurnIDEmpty(t *testing.T) {
	ctx := context.Background()

	turnID := GetTurnID(ctx)
	if turnID != "" {
		t.Errorf("Expected empty turn ID, got %s", turnID)
	}
}

func TestGetConversationKeyEmpty(t *testing.T) {
	ctx := context.Background()

	key := GetConversationKey(ctx)
	if key != "" {
		t.Errorf("Expected empty conversation key, got %s", key)
	}
}

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-123")
	ctx = WithTurnID(ctx, "turn-456")
	ctx = WithConversationKey(ctx, "caller-789")
	ctx = WithRequestID(ctx, "req-abc")

	tc := FromContext(ctx)

	if tc.TraceID != "trace-123" {
		t.Errorf("Expected trace ID trace-123, got %s", tc.TraceID)
	}
	if tc.TurnID != "turn-456" {
		t.Errorf("Expected turn ID turn-456, got %s", tc.TurnID)
	}
	if tc.ConversationKey != "caller-789" {
		t.Errorf("Expected conversation key caller-789, got %s", tc.ConversationKey)
	}
	if tc.RequestID != "req-abc" {
		t.Errorf("Expected request ID req-abc, got %s", tc.RequestID)
	}
}

func TestNewContext(t *testing.T) {
	ctx := context.Background()

	tc := &TraceContext{
		TraceID:         "trace-123",
		TurnID:          "turn-456",
		ConversationKey: "caller-789",
		RequestID:       "req-abc",
	}

	ctx = NewContext(ctx, tc)

	if GetTraceID(ctx) != "trace-123" {
		t.Error("Trace ID not set correctly")
	}
	if GetTurnID(ctx) != "turn-456" {
		t.Error("Turn ID not set correctly")
	}
	if GetConversationKey(ctx) != "caller-789" {
		t.Error("Conversation key not set correctly")
	}
	if GetRequestID(ctx) != "req-abc" {
		t.Error("Request ID not set correctly")
	}
}

func TestNewContextPartial(t *testing.T) {
	ctx := context.Background()

	tc := &TraceContext{
		TraceID: "trace-123",
		// Other fields empty
	}

	ctx = NewContext(ctx, tc)

	if GetTraceID(ctx) != "trace-123" {
		t.Error("Trace ID not set correctly")
	}
	if GetTurnID(ctx) != "" {
		t.Error("Turn ID should be empty")
	}
	if GetConversationKey(ctx) != "" {
		t.Error("Conversation key should be empty")
	}
}

func TestNewRequestContext(t *testing.T) {
	ctx := context.Background()

	ctx = NewRequestContext(ctx)

	traceID := GetTraceID(ctx)
	if traceID == "" {
		t.Error("Trace ID not generated")
	}

	// Verify it's a valid UUID format
	if len(traceID) != 36 {
		t.Errorf("Expected UUID format (36 chars), got %d chars", len(traceID))
	}
}

func TestNewTurnContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-parent")

	turnCtx := NewTurnContext(ctx, "caller-42")

	if GetTraceID(turnCtx) != "trace-parent" {
		t.Error("Trace ID not carried into turn context")
	}
	if GetTurnID(turnCtx) == "" {
		t.Error("Turn ID not generated")
	}
	if GetConversationKey(turnCtx) != "caller-42" {
		t.Error("Conversation key not set correctly")
	}

	second := NewTurnContext(ctx, "caller-42")
	if GetTurnID(second) == GetTurnID(turnCtx) {
		t.Error("Turn ID should differ between turns")
	}
}

func TestNewTurnContextGeneratesTraceID(t *testing.T) {
	turnCtx := NewTurnContext(context.Background(), "caller-42")

	if GetTraceID(turnCtx) == "" {
		t.Error("Trace ID not generated for orphan turn")
	}
}
