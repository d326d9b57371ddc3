package agentforce

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// defaultGatewayBase is the vendor-hosted API gateway every org shares.
	defaultGatewayBase = "https://api.salesforce.com/einstein/ai-agent/v1"

	// alternateAPIVersion pins the REST API version of the per-org
	// alternate endpoints.
	alternateAPIVersion = "v59.0"
)

// endpoint is one URL shape for a platform call. The primary shape goes
// through the shared API gateway, the alternate through the org's own
// instance.
type endpoint struct {
	url       string
	alternate bool
}

func (e endpoint) label() string {
	if e.alternate {
		return "alternate"
	}
	return "primary"
}

// sessionEndpoints returns the create-session URLs in attempt order.
func sessionEndpoints(gatewayBase string, creds Credentials, token *Token) []endpoint {
	eps := []endpoint{{
		url: fmt.Sprintf("%s/agents/%s/sessions", gatewayBase, creds.AgentID),
	}}
	if token.InstanceURL != "" {
		eps = append(eps, endpoint{
			url: fmt.Sprintf("%s/services/data/%s/einstein/ai-agent/agents/%s/sessions",
				strings.TrimRight(token.InstanceURL, "/"), alternateAPIVersion, creds.AgentID),
			alternate: true,
		})
	}
	return eps
}

// messageEndpoints returns the send-message URLs in attempt order.
func messageEndpoints(gatewayBase string, token *Token, sessionID string) []endpoint {
	eps := []endpoint{{
		url: fmt.Sprintf("%s/sessions/%s/messages", gatewayBase, sessionID),
	}}
	if token.InstanceURL != "" {
		eps = append(eps, endpoint{
			url: fmt.Sprintf("%s/services/data/%s/einstein/ai-agent/sessions/%s/messages",
				strings.TrimRight(token.InstanceURL, "/"), alternateAPIVersion, sessionID),
			alternate: true,
		})
	}
	return eps
}

// newExternalSessionKey returns the 32 hex character key the platform
// expects in externalSessionKey. Each create attempt gets a fresh one.
func newExternalSessionKey() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
