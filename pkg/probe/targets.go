package probe

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/voxgate/voxgate/internal/config"
)

// Target names reported by metrics, status and broadcasts.
const (
	TargetSpeech     = "speech"
	TargetAgentforce = "agentforce"
)

// Target is one endpoint to probe.
type Target struct {
	Name   string
	Method string
	URL    string
	Header http.Header
}

// SpeechTarget probes the provider's model listing, the cheapest
// authenticated read the API offers.
func SpeechTarget(cfg config.SpeechConfig) Target {
	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	return Target{
		Name:   TargetSpeech,
		Method: http.MethodGet,
		URL:    strings.TrimRight(cfg.Endpoint, "/") + "/models",
		Header: header,
	}
}

// AgentforceTarget probes the org's token endpoint without spending a
// credential exchange on it.
func AgentforceTarget(cfg config.AgentforceConfig) Target {
	return Target{
		Name:   TargetAgentforce,
		Method: http.MethodHead,
		URL:    fmt.Sprintf("https://%s/services/oauth2/token", cfg.ServerHost),
	}
}

// TargetsFromConfig builds the probe set for the enabled integrations.
func TargetsFromConfig(cfg *config.Config) []Target {
	var targets []Target
	if cfg.Speech.Enabled && strings.TrimSpace(cfg.Speech.Endpoint) != "" {
		targets = append(targets, SpeechTarget(cfg.Speech))
	}
	if cfg.Agentforce.Enabled && strings.TrimSpace(cfg.Agentforce.ServerHost) != "" {
		targets = append(targets, AgentforceTarget(cfg.Agentforce))
	}
	return targets
}
