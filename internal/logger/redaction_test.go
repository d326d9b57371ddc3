package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedactor(t *testing.T) {
	r := NewRedactor()
	assert.NotNil(t, r)
	assert.NotEmpty(t, r.patterns)
}

func TestRedact(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "provider API key",
			input: "speech key: sk-test123456789abcdefghijklmnopqrstuvwxyz",
		},
		{
			name:  "bearer token",
			input: "Authorization: Bearer 00DKj000twelve!AQEAQNmyOrgAccessToken.value",
		},
		{
			name:  "salesforce session token",
			input: "got token 00DKj000001Gkpz!AQEAQJ7mP2kFvQxyz",
		},
		{
			name:  "access token JSON field",
			input: `body: {"access_token":"abcDEF123456789012345","instance_url":"https://x.my.salesforce.com"}`,
		},
		{
			name:  "client secret form field",
			input: "client_secret=1955279925675241571&grant_type=client_credentials",
		},
		{
			name:  "password",
			input: `password: "secret123"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := r.Redact(tt.input)
			assert.Contains(t, result, "[REDACTED]", "should contain [REDACTED] for: %s", tt.input)
		})
	}

	t.Run("no sensitive data", func(t *testing.T) {
		input := "conversation turn completed"
		assert.Equal(t, input, r.Redact(input))
	})

	t.Run("instance URL survives redaction", func(t *testing.T) {
		result := r.Redact(`{"access_token":"abcDEF123456789012345","instance_url":"https://acme.my.salesforce.com"}`)
		assert.Contains(t, result, "acme.my.salesforce.com")
		assert.NotContains(t, result, "abcDEF123456789012345")
	})
}

func TestAddPattern(t *testing.T) {
	r := NewRedactor()

	t.Run("valid pattern", func(t *testing.T) {
		err := r.AddPattern(`custom-[0-9]+`)
		assert.NoError(t, err)

		result := r.Redact("Value: custom-12345")
		assert.Contains(t, result, "[REDACTED]")
	})

	t.Run("invalid pattern", func(t *testing.T) {
		err := r.AddPattern(`[invalid`)
		assert.Error(t, err)
	})
}

func TestWrap(t *testing.T) {
	r := NewRedactor()
	buf := &bytes.Buffer{}

	writer := r.Wrap(buf)
	assert.NotNil(t, writer)

	n, err := writer.Write([]byte("speech key: sk-test123456789abcdefghijklmnopqrstuvwxyz"))
	require.NoError(t, err)
	assert.Greater(t, n, 0)

	output := buf.String()
	assert.Contains(t, output, "[REDACTED]")
	assert.NotContains(t, output, "sk-test123456789abcdef")
}

func TestRedactingWriter(t *testing.T) {
	r := NewRedactor()
	buf := &bytes.Buffer{}
	writer := &redactingWriter{
		writer:   buf,
		redactor: r,
	}

	t.Run("write with sensitive data", func(t *testing.T) {
		buf.Reset()

		data := []byte("client_secret=super.secret.value&client_id=3MVG9x")
		n, err := writer.Write(data)

		require.NoError(t, err)
		assert.Greater(t, n, 0)

		output := buf.String()
		assert.Contains(t, output, "[REDACTED]")
		assert.NotContains(t, output, "super.secret.value")
	})

	t.Run("write without sensitive data", func(t *testing.T) {
		buf.Reset()

		data := []byte("Normal log message")
		n, err := writer.Write(data)

		require.NoError(t, err)
		assert.Greater(t, n, 0)

		output := buf.String()
		assert.Equal(t, "Normal log message", output)
	})
}
