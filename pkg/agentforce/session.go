package agentforce

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voxgate/voxgate/internal/observability"
	"github.com/voxgate/voxgate/internal/tracing"
)

const sessionTimeout = 30 * time.Second

// createSession opens a platform session for conv, refreshing the token at
// most once when the platform rejects the bearer. conv.mu is held by the
// caller.
func (c *Client) createSession(ctx context.Context, creds Credentials, conv *conversation) (*Session, error) {
	reauthed := false
	for {
		if conv.token == nil {
			token, err := c.auth.Authenticate(ctx, creds)
			if err != nil {
				return nil, err
			}
			conv.token = token
		}

		session, status, err := c.postSession(ctx, creds, conv.token)
		if err == nil {
			return session, nil
		}

		if status == http.StatusUnauthorized && !reauthed {
			reauthed = true
			conv.token = nil
			observability.RecordFallback("reauth")
			logger := tracing.LoggerFromContext(ctx, log.Logger)
			logger.Warn().
				Msg("Bearer rejected during session create, refreshing token")
			continue
		}

		return nil, err
	}
}

// postSession runs one create pass: the primary endpoint, then on failure a
// single alternate attempt. A 401 stops the pass so the caller can refresh
// the token instead.
func (c *Client) postSession(ctx context.Context, creds Credentials, token *Token) (*Session, int, error) {
	ctx, cancel := context.WithTimeout(ctx, sessionTimeout)
	defer cancel()

	var lastStatus int
	var lastErr error

	for _, ep := range sessionEndpoints(c.gatewayBase, creds, token) {
		if ep.alternate {
			observability.RecordFallback("alternate")
			logger := tracing.LoggerFromContext(ctx, log.Logger)
			logger.Warn().
				Int("status", lastStatus).
				Msg("Primary session endpoint failed, trying instance endpoint")
		}

		payload := sessionRequest{
			ExternalSessionKey: newExternalSessionKey(),
			InstanceConfig:     instanceConfig{Endpoint: token.InstanceURL},
			BypassUser:         true,
		}
		if !ep.alternate {
			payload.StreamingCapabilities = &streamingCapabilities{ChunkTypes: []string{"Text"}}
		}

		status, body, err := c.postJSON(ctx, ep.url, token.AccessToken, payload)
		if err != nil {
			observability.RecordSessionCreate(ep.label(), false)
			lastStatus = 0
			lastErr = &SessionError{Message: err.Error()}
			continue
		}

		if status == http.StatusOK || status == http.StatusCreated {
			session, perr := parseSession(status, body)
			if perr != nil {
				observability.RecordSessionCreate(ep.label(), false)
				lastStatus = status
				lastErr = perr
				continue
			}
			observability.RecordSessionCreate(ep.label(), true)
			return session, status, nil
		}

		observability.RecordSessionCreate(ep.label(), false)
		lastStatus = status
		lastErr = &SessionError{Status: status, Message: apiMessage(status, body)}
		if status == http.StatusUnauthorized {
			break
		}
	}

	return nil, lastStatus, lastErr
}

func parseSession(status int, body []byte) (*Session, error) {
	var sr sessionResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, &SessionError{Status: status, Message: "malformed session response"}
	}
	if strings.TrimSpace(sr.SessionID) == "" {
		return nil, &SessionError{Status: status, Message: "session created without a session id"}
	}
	return &Session{ID: sr.SessionID, SequenceID: 1}, nil
}
