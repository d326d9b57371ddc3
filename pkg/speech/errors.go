package speech

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError reports a provider request that came back non-2xx. Status is 0
// when the request never produced an HTTP response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("speech provider request failed: %s", e.Message)
	}
	return fmt.Sprintf("speech provider request failed (status %d): %s", e.Status, e.Message)
}

// providerMessage pulls a human-readable message out of an OpenAI-style
// error body, {"error": {"message": ...}}, tolerating the bare-string
// variant some compatible servers answer with.
func providerMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("%d %s", status, http.StatusText(status))

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return fallback
	}

	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return fallback
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
	if envelope.Message != "" {
		return envelope.Message
	}
	return fallback
}
