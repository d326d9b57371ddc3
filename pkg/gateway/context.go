package gateway

import "context"

type ctxKey string

const (
	clientIDKey  ctxKey = "clientID"
	transportKey ctxKey = "transport"
)

// Transport tags distinguish which front door an RPC entered through.
const (
	transportWebSocket = "ws"
	transportHTTP      = "http"
)

func withClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}

func clientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(clientIDKey).(string); ok {
		return value
	}
	return ""
}

func withTransport(ctx context.Context, transport string) context.Context {
	return context.WithValue(ctx, transportKey, transport)
}

func transportFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(transportKey).(string); ok {
		return value
	}
	return ""
}
