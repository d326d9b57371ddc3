package agentforce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// AuthError reports a failed token exchange. Status is 0 when the request
// never produced an HTTP response.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("agent authentication failed: %s", e.Message)
	}
	return fmt.Sprintf("agent authentication failed (status %d): %s", e.Status, e.Message)
}

// SessionError reports a failed session create.
type SessionError struct {
	Status  int
	Message string
}

func (e *SessionError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("agent session create failed: %s", e.Message)
	}
	return fmt.Sprintf("agent session create failed (status %d): %s", e.Status, e.Message)
}

// MessageError reports a message delivery that failed after the fallback
// ladder was exhausted.
type MessageError struct {
	Status  int
	Message string
}

func (e *MessageError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("agent message failed: %s", e.Message)
	}
	return fmt.Sprintf("agent message failed (status %d): %s", e.Status, e.Message)
}

// apiMessage pulls a human-readable message out of a platform error body.
// The OAuth endpoint answers {"error", "error_description"}, the agent API
// answers {"message"} or a bare array of {"message"} objects, and proxies in
// between answer whatever they like.
func apiMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("%d %s", status, http.StatusText(status))

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fallback
	}

	var envelope struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Message          string          `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.ErrorDescription != "" {
			return envelope.ErrorDescription
		}
		if len(envelope.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
				return nested.Message
			}
			var plain string
			if err := json.Unmarshal(envelope.Error, &plain); err == nil && plain != "" {
				return plain
			}
		}
		return fallback
	}

	var list []struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &list); err == nil && len(list) > 0 && list[0].Message != "" {
		return list[0].Message
	}

	return fallback
}
