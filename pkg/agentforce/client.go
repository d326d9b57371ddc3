package agentforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voxgate/voxgate/internal/observability"
	"github.com/voxgate/voxgate/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	messageTimeout = 120 * time.Second

	// DefaultReply is the stand-in text for an agent answer that arrived
	// empty.
	DefaultReply = "No response from agent"

	messageTypeText = "Text"
)

// CredentialsProvider yields the current platform credentials for a turn.
// Implementations return a not-configured error when the integration is
// disabled or incomplete.
type CredentialsProvider func() (Credentials, error)

// Client drives agent conversations. All methods are safe for concurrent
// use; turns for the same conversation key serialize.
type Client struct {
	creds      CredentialsProvider
	auth       *Authenticator
	httpClient *http.Client
	registry   *registry

	// gatewayBase is swappable so tests can stand in for the shared API
	// gateway.
	gatewayBase string
}

// NewClient creates a Client that fetches credentials from provider on each
// turn.
func NewClient(provider CredentialsProvider) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("credentials provider is required")
	}

	observability.EnsureRegistered()

	httpClient := &http.Client{}
	return &Client{
		creds:       provider,
		auth:        NewAuthenticatorWithClient(httpClient),
		httpClient:  httpClient,
		registry:    newRegistry(),
		gatewayBase: defaultGatewayBase,
	}, nil
}

// SendMessage delivers one user utterance to the agent and returns its
// reply. Cached token and session are reused across turns; a rejected
// bearer triggers at most one re-authentication and a dead session at most
// one re-create before the error is surfaced.
func (c *Client) SendMessage(ctx context.Context, conversationKey, text string) (*Reply, error) {
	if err := validateConversationKey(conversationKey); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("message text cannot be empty")
	}

	creds, err := c.creds()
	if err != nil {
		return nil, err
	}

	ctx = tracing.WithConversationKey(ctx, conversationKey)
	ctx, span := tracing.StartSpan(
		ctx,
		"voxgate.agentforce",
		"agent.send_message",
		attribute.String("conversation_key", conversationKey),
	)
	defer span.End()

	conv := c.registry.get(conversationKey)
	observability.SetActiveConversations(c.registry.len())

	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.touch()

	start := time.Now()
	reply, err := c.deliver(ctx, creds, conv, conversationKey, text)
	observability.RecordAgentMessage(time.Since(start), err == nil)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return nil, err
	}

	conv.touch()
	return reply, nil
}

// deliver runs the send ladder for one turn. conv.mu is held throughout, so
// concurrent refresh attempts for the same key collapse into whichever turn
// got there first.
func (c *Client) deliver(ctx context.Context, creds Credentials, conv *conversation, key, text string) (*Reply, error) {
	logger := tracing.LoggerFromContext(ctx, log.Logger).With().Str("conversation", key).Logger()

	reauthed := false
	resessioned := false

	for {
		if conv.token == nil {
			token, err := c.auth.Authenticate(ctx, creds)
			if err != nil {
				return nil, err
			}
			conv.token = token
		}

		if conv.session == nil {
			session, err := c.createSession(ctx, creds, conv)
			if err != nil {
				return nil, err
			}
			conv.session = session
			logger.Info().Str("session_id", session.ID).Msg("Agent session opened")
			observability.RecordSessionAudit(ctx, "create", key, "success", map[string]interface{}{
				"session_id": session.ID,
			})
		}

		reply, status, err := c.postMessage(ctx, conv.token, conv.session, text)
		if err == nil {
			conv.session.SequenceID++
			logger.Debug().Int64("next_sequence", conv.session.SequenceID).Msg("Agent reply received")
			return &Reply{Text: reply, NextSequenceID: conv.session.SequenceID}, nil
		}

		switch {
		case status == http.StatusUnauthorized && !reauthed:
			// The bearer is stale for both URL shapes, so refresh and
			// resend directly instead of detouring through the alternate.
			reauthed = true
			conv.token = nil
			observability.RecordFallback("reauth")
			logger.Warn().Msg("Access token rejected, refreshing and retrying send")
		case status == http.StatusNotFound && !resessioned:
			resessioned = true
			conv.session = nil
			observability.RecordFallback("resession")
			logger.Warn().Msg("Session gone, recreating and retrying send")
		default:
			return nil, err
		}
	}
}

// postMessage runs one delivery pass: the primary endpoint, then on failure
// a single alternate attempt. 401 and 404 stop the pass early because the
// ladder handles them with a refresh instead of a URL change.
func (c *Client) postMessage(ctx context.Context, token *Token, session *Session, text string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, messageTimeout)
	defer cancel()

	payload := messageRequest{Message: messagePayload{
		SequenceID: session.SequenceID,
		Type:       messageTypeText,
		Text:       text,
	}}

	var lastStatus int
	var lastErr error

	for _, ep := range messageEndpoints(c.gatewayBase, token, session.ID) {
		if ep.alternate {
			observability.RecordFallback("alternate")
			logger := tracing.LoggerFromContext(ctx, log.Logger)
			logger.Warn().
				Int("status", lastStatus).
				Msg("Primary message endpoint failed, trying instance endpoint")
		}

		status, body, err := c.postJSON(ctx, ep.url, token.AccessToken, payload)
		if err != nil {
			lastStatus = 0
			lastErr = &MessageError{Message: err.Error()}
			continue
		}

		if status == http.StatusOK {
			return extractReply(body), status, nil
		}

		lastStatus = status
		lastErr = &MessageError{Status: status, Message: apiMessage(status, body)}
		if status == http.StatusUnauthorized || status == http.StatusNotFound {
			break
		}
	}

	return "", lastStatus, lastErr
}

func extractReply(body []byte) string {
	var mr messageResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		return DefaultReply
	}
	if len(mr.Messages) == 0 || strings.TrimSpace(mr.Messages[0].Message) == "" {
		return DefaultReply
	}
	return mr.Messages[0].Message
}

func (c *Client) postJSON(ctx context.Context, endpointURL, bearer string, payload interface{}) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, body, nil
}

// Reset drops cached token and session state for a conversation key,
// reporting whether any existed. The next turn starts a fresh session.
func (c *Client) Reset(conversationKey string) bool {
	removed := c.registry.remove(conversationKey)
	if removed {
		observability.SetActiveConversations(c.registry.len())
		log.Info().Str("conversation", conversationKey).Msg("Conversation reset")
	}
	return removed
}

// ResetAll drops every cached conversation, for example after a credential
// change. Returns the number dropped.
func (c *Client) ResetAll() int {
	n := c.registry.removeAll()
	if n > 0 {
		observability.SetActiveConversations(0)
		log.Info().Int("conversations", n).Msg("All conversations reset")
	}
	return n
}

// ActiveConversations returns the number of tracked conversations.
func (c *Client) ActiveConversations() int {
	return c.registry.len()
}

// EvictIdle drops conversations idle for at least ttl and returns their
// keys.
func (c *Client) EvictIdle(ttl time.Duration) []string {
	evicted := c.registry.evictIdle(ttl)
	if len(evicted) > 0 {
		observability.SetActiveConversations(c.registry.len())
		observability.RecordConversationEvictions(len(evicted))
		for _, key := range evicted {
			observability.RecordSessionAudit(context.Background(), "evict", key, "success", nil)
		}
		log.Info().Int("evicted", len(evicted)).Msg("Idle conversations evicted")
	}
	return evicted
}
