package agentforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voxgate/voxgate/internal/observability"
)

const authTimeout = 30 * time.Second

// Authenticator exchanges client credentials for an access token.
type Authenticator struct {
	httpClient *http.Client

	// tokenURL overrides the endpoint derived from the credentials.
	// Tests point it at a local server.
	tokenURL string
}

// NewAuthenticator creates an Authenticator with a default HTTP client.
func NewAuthenticator() *Authenticator {
	return NewAuthenticatorWithClient(&http.Client{})
}

// NewAuthenticatorWithClient creates an Authenticator using the given HTTP
// client.
func NewAuthenticatorWithClient(httpClient *http.Client) *Authenticator {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Authenticator{httpClient: httpClient}
}

// Authenticate performs the client-credentials exchange for creds. A 200
// without an access token is still a failure.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (*Token, error) {
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)

	tokenURL := a.tokenURL
	if tokenURL == "" {
		tokenURL = fmt.Sprintf("https://%s/services/oauth2/token", creds.ServerHost)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		observability.RecordAuthRefresh(false)
		return nil, &AuthError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.RecordAuthRefresh(false)
		return nil, &AuthError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		observability.RecordAuthRefresh(false)
		return nil, &AuthError{Status: resp.StatusCode, Message: apiMessage(resp.StatusCode, body)}
	}

	token, err := parseToken(resp.StatusCode, body)
	if err != nil {
		observability.RecordAuthRefresh(false)
		return nil, err
	}

	observability.RecordAuthRefresh(true)
	log.Debug().Str("host", creds.ServerHost).Msg("Access token obtained")

	return token, nil
}

func parseToken(status int, body []byte) (*Token, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &AuthError{Status: status, Message: fmt.Sprintf("malformed token response: %v", err)}
	}
	if strings.TrimSpace(tr.AccessToken) == "" {
		return nil, &AuthError{Status: status, Message: "authentication succeeded but no access token was returned"}
	}
	return &Token{
		AccessToken: tr.AccessToken,
		InstanceURL: strings.TrimRight(tr.InstanceURL, "/"),
	}, nil
}
