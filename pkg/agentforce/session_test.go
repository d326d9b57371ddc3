package agentforce

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionAlternateFallback(t *testing.T) {
	f := newFakePlatform(t)
	client := newTestClient(t, f)

	f.sessionFn = func(req recordedRequest) (int, string) {
		if !req.Alternate {
			return http.StatusInternalServerError, `{"message":"primary down"}`
		}
		return http.StatusCreated, `{"sessionId":"alt-session"}`
	}

	reply, err := client.SendMessage(context.Background(), "caller-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(2), reply.NextSequenceID)

	sessions := f.SessionReqs()
	require.Len(t, sessions, 2, "exactly one alternate attempt")
	assert.False(t, sessions[0].Alternate)
	assert.True(t, sessions[1].Alternate)

	var primary, alternate map[string]interface{}
	require.NoError(t, json.Unmarshal(sessions[0].Body, &primary))
	require.NoError(t, json.Unmarshal(sessions[1].Body, &alternate))

	assert.Contains(t, primary, "streamingCapabilities")
	assert.NotContains(t, alternate, "streamingCapabilities",
		"instance endpoint rejects the streaming hint")
	assert.Equal(t, true, alternate["bypassUser"])

	primaryKey, _ := primary["externalSessionKey"].(string)
	alternateKey, _ := alternate["externalSessionKey"].(string)
	assert.Regexp(t, hexKeyPattern, primaryKey)
	assert.Regexp(t, hexKeyPattern, alternateKey)
	assert.NotEqual(t, primaryKey, alternateKey, "every attempt gets a fresh key")

	messages := f.MessageReqs()
	require.Len(t, messages, 1)
	assert.Equal(t, "alt-session", messages[0].SessionID)
}

func TestCreateSessionAlternateFailureIsFinal(t *testing.T) {
	f := newFakePlatform(t)
	client := newTestClient(t, f)

	f.sessionFn = func(req recordedRequest) (int, string) {
		if !req.Alternate {
			return http.StatusInternalServerError, `{"message":"primary down"}`
		}
		return http.StatusServiceUnavailable, `{"message":"instance down"}`
	}

	_, err := client.SendMessage(context.Background(), "caller-1", "hello")
	require.Error(t, err)

	var sessErr *SessionError
	require.ErrorAs(t, err, &sessErr)
	assert.Equal(t, http.StatusServiceUnavailable, sessErr.Status)
	assert.Contains(t, sessErr.Message, "instance down")

	assert.Len(t, f.SessionReqs(), 2, "no alternate ping-pong")
	assert.Empty(t, f.MessageReqs())
}

func TestCreateSessionReauthOn401(t *testing.T) {
	f := newFakePlatform(t)
	client := newTestClient(t, f)

	f.sessionFn = func(req recordedRequest) (int, string) {
		if req.Bearer == "token-1" {
			return http.StatusUnauthorized, `[{"message":"Session expired or invalid"}]`
		}
		return http.StatusOK, `{"sessionId":"session-ok"}`
	}

	reply, err := client.SendMessage(context.Background(), "caller-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello from agent", reply.Text)

	assert.Equal(t, 2, f.TokenCalls(), "one re-authentication during create")

	sessions := f.SessionReqs()
	require.Len(t, sessions, 2)
	assert.False(t, sessions[0].Alternate, "401 skips the alternate and refreshes instead")
	assert.False(t, sessions[1].Alternate)
	assert.Equal(t, "token-2", sessions[1].Bearer)
}

func TestCreateSessionSecond401IsFinal(t *testing.T) {
	f := newFakePlatform(t)
	client := newTestClient(t, f)

	f.sessionFn = func(req recordedRequest) (int, string) {
		return http.StatusUnauthorized, `[{"message":"Session expired or invalid"}]`
	}

	_, err := client.SendMessage(context.Background(), "caller-1", "hello")
	require.Error(t, err)

	var sessErr *SessionError
	require.ErrorAs(t, err, &sessErr)
	assert.Equal(t, http.StatusUnauthorized, sessErr.Status)

	assert.Equal(t, 2, f.TokenCalls())
	assert.Len(t, f.SessionReqs(), 2)
}

func TestCreateSessionBlankIDTriesAlternate(t *testing.T) {
	f := newFakePlatform(t)
	client := newTestClient(t, f)

	f.sessionFn = func(req recordedRequest) (int, string) {
		if !req.Alternate {
			return http.StatusOK, `{"sessionId":""}`
		}
		return http.StatusOK, `{"sessionId":"alt-session"}`
	}

	_, err := client.SendMessage(context.Background(), "caller-1", "hello")
	require.NoError(t, err)

	messages := f.MessageReqs()
	require.Len(t, messages, 1)
	assert.Equal(t, "alt-session", messages[0].SessionID)
}

func TestCreateSessionAuthFailurePropagates(t *testing.T) {
	f := newFakePlatform(t)
	client := newTestClient(t, f)

	f.tokenFn = func(call int) (int, string) {
		return http.StatusBadRequest, `{"error":"invalid_client","error_description":"client identifier invalid"}`
	}

	_, err := client.SendMessage(context.Background(), "caller-1", "hello")
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusBadRequest, authErr.Status)
	assert.Contains(t, authErr.Message, "client identifier invalid")

	assert.Empty(t, f.SessionReqs(), "no session attempt without a token")
}
