package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_Validation(t *testing.T) {
	t.Run("should reject invalid port", func(t *testing.T) {
		_, err := NewServer(Config{Port: 0, SharedSecret: "s", Bridge: &stubBridge{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid port")
	})

	t.Run("should reject missing secret", func(t *testing.T) {
		_, err := NewServer(Config{Port: 8080, Bridge: &stubBridge{}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shared secret")
	})

	t.Run("should reject missing bridge", func(t *testing.T) {
		_, err := NewServer(Config{Port: 8080, SharedSecret: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bridge")
	})
}

func TestServer_HandleRPC(t *testing.T) {
	srv := newTestServer(t, nil)

	doRPC := func(secret string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
		if secret != "" {
			req.Header.Set("X-Voxgate-Secret", secret)
		}
		rec := httptest.NewRecorder()
		srv.handleRPC(rec, req)
		return rec
	}

	t.Run("should reject wrong secret", func(t *testing.T) {
		rec := doRPC("wrong", []byte(`{"id":"1","method":"status.get"}`))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("should reject non-POST", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rpc", nil)
		rec := httptest.NewRecorder()
		srv.handleRPC(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("should execute method with valid secret", func(t *testing.T) {
		rec := doRPC("test-secret", []byte(`{"id":"42","method":"status.get"}`))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp RPCResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "42", resp.ID)
		require.Nil(t, resp.Error)

		result := resp.Result.(map[string]interface{})
		assert.Equal(t, true, result["running"])
	})

	t.Run("should return parse error for malformed body", func(t *testing.T) {
		rec := doRPC("test-secret", []byte(`{not json`))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp RPCResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, ParseError, resp.Error.Code)
	})
}

func TestServer_WebSocketAuthFlow(t *testing.T) {
	serverConn, clientConn, cleanup := websocketConnPair(t)
	defer cleanup()

	srv := newTestServer(t, nil)

	client := &Client{
		ID:          "ws-client",
		Conn:        serverConn,
		ConnectedAt: time.Now(),
		RateLimiter: NewClientRateLimiter(),
		State:       StateConnecting,
	}
	srv.clients.Add(client)
	require.NoError(t, srv.sendAuthChallenge(client))

	go srv.handleClient(client)

	var challenge AuthChallenge
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, clientConn.ReadJSON(&challenge))
	assert.Equal(t, "auth.challenge", challenge.Event)
	assert.NotEmpty(t, challenge.Challenge)

	// Requests before authentication are refused.
	require.NoError(t, clientConn.WriteJSON(map[string]interface{}{
		"id":     "1",
		"method": "status.get",
	}))

	var refused RPCResponse
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, clientConn.ReadJSON(&refused))
	require.NotNil(t, refused.Error)
	assert.Equal(t, AuthenticationRequired, refused.Error.Code)

	// Sign the challenge with the shared secret.
	require.NoError(t, clientConn.WriteJSON(map[string]interface{}{
		"method":    "auth.response",
		"signature": computeHMAC(challenge.Challenge, "test-secret"),
	}))

	var authResult AuthResult
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, clientConn.ReadJSON(&authResult))
	assert.True(t, authResult.Success)
	assert.Equal(t, "auth.success", authResult.Event)

	// Authenticated requests reach the router.
	require.NoError(t, clientConn.WriteJSON(map[string]interface{}{
		"id":     "2",
		"method": "status.get",
	}))

	var resp RPCResponse
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, clientConn.ReadJSON(&resp))
	assert.Equal(t, "2", resp.ID)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]interface{})
	assert.Equal(t, true, result["running"])
}

func TestServer_WebSocketRejectsBadSignature(t *testing.T) {
	serverConn, clientConn, cleanup := websocketConnPair(t)
	defer cleanup()

	srv := newTestServer(t, nil)

	client := &Client{
		ID:          "ws-client",
		Conn:        serverConn,
		ConnectedAt: time.Now(),
		RateLimiter: NewClientRateLimiter(),
		State:       StateConnecting,
	}
	srv.clients.Add(client)
	require.NoError(t, srv.sendAuthChallenge(client))

	go srv.handleClient(client)

	var challenge AuthChallenge
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, clientConn.ReadJSON(&challenge))

	require.NoError(t, clientConn.WriteJSON(map[string]interface{}{
		"method":    "auth.response",
		"signature": "not-a-signature",
	}))

	var authResult AuthResult
	require.NoError(t, clientConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, clientConn.ReadJSON(&authResult))
	assert.False(t, authResult.Success)
	assert.Equal(t, "auth.failure", authResult.Event)
}
