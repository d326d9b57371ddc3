package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured marks an integration that is disabled or missing
// required credentials. Callers branch on it with errors.Is to report a
// configuration problem instead of a transport failure.
var ErrNotConfigured = errors.New("not configured")

// Config represents the main voxgate configuration
type Config struct {
	// Agentforce holds the vendor agent platform credentials
	Agentforce AgentforceConfig `json:"agentforce" mapstructure:"agentforce"`

	// Speech holds the OpenAI-compatible speech provider settings
	Speech SpeechConfig `json:"speech" mapstructure:"speech"`

	// Gateway configuration (websocket + RPC)
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// HTTP API configuration (browser-facing REST surface)
	HTTP HTTPConfig `json:"http" mapstructure:"http"`

	// Probe configuration (upstream connectivity checks)
	Probe ProbeConfig `json:"probe" mapstructure:"probe"`

	// Conversations configuration (idle eviction)
	Conversations ConversationsConfig `json:"conversations" mapstructure:"conversations"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AgentforceConfig holds the connected-app credentials for the agent
// platform. ServerHost is the org's My Domain host without a scheme.
type AgentforceConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	ServerHost   string `json:"server_host" mapstructure:"server_host"`
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
	AgentID      string `json:"agent_id" mapstructure:"agent_id"`
	OrgID        string `json:"org_id" mapstructure:"org_id"`
}

// Check reports whether the Agentforce integration is usable. Disabled or
// incomplete credentials yield an error wrapping ErrNotConfigured.
func (a AgentforceConfig) Check() error {
	if !a.Enabled {
		return fmt.Errorf("agentforce integration disabled: %w", ErrNotConfigured)
	}
	var missing []string
	if strings.TrimSpace(a.ServerHost) == "" {
		missing = append(missing, "server_host")
	}
	if strings.TrimSpace(a.ClientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(a.ClientSecret) == "" {
		missing = append(missing, "client_secret")
	}
	if strings.TrimSpace(a.AgentID) == "" {
		missing = append(missing, "agent_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("agentforce missing %s: %w", strings.Join(missing, ", "), ErrNotConfigured)
	}
	return nil
}

// SpeechConfig holds the speech provider settings. Endpoint is the base URL
// of an OpenAI-compatible API, e.g. https://api.openai.com/v1.
type SpeechConfig struct {
	Enabled         bool    `json:"enabled" mapstructure:"enabled"`
	Endpoint        string  `json:"endpoint" mapstructure:"endpoint"`
	APIKey          string  `json:"api_key" mapstructure:"api_key"`
	TranscribeModel string  `json:"transcribe_model" mapstructure:"transcribe_model"`
	ChatModel       string  `json:"chat_model" mapstructure:"chat_model"`
	TTSModel        string  `json:"tts_model" mapstructure:"tts_model"`
	TTSVoice        string  `json:"tts_voice" mapstructure:"tts_voice"`
	TTSFormat       string  `json:"tts_format" mapstructure:"tts_format"`
	MaxTokens       int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature     float64 `json:"temperature" mapstructure:"temperature"`
}

// Check reports whether the speech integration is usable
func (s SpeechConfig) Check() error {
	if !s.Enabled {
		return fmt.Errorf("speech integration disabled: %w", ErrNotConfigured)
	}
	var missing []string
	if strings.TrimSpace(s.Endpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if strings.TrimSpace(s.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("speech missing %s: %w", strings.Join(missing, ", "), ErrNotConfigured)
	}
	return nil
}

// GatewayConfig holds gateway server configuration
type GatewayConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	Port         int    `json:"port" mapstructure:"port"`
	Host         string `json:"host" mapstructure:"host"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
}

// HTTPConfig holds the browser-facing HTTP API configuration
type HTTPConfig struct {
	Enabled            bool   `json:"enabled" mapstructure:"enabled"`
	Port               int    `json:"port" mapstructure:"port"`
	Host               string `json:"host" mapstructure:"host"`
	SharedSecret       string `json:"shared_secret" mapstructure:"shared_secret"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"`
}

// ProbeConfig holds upstream connectivity check configuration. Schedule is
// a cron expression; @every descriptors are accepted.
type ProbeConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Schedule string `json:"schedule" mapstructure:"schedule"`
}

// ConversationsConfig bounds the in-memory conversation cache
type ConversationsConfig struct {
	IdleTTLMinutes         int `json:"idle_ttl_minutes" mapstructure:"idle_ttl_minutes"`
	CleanupIntervalMinutes int `json:"cleanup_interval_minutes" mapstructure:"cleanup_interval_minutes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Agentforce: AgentforceConfig{
			Enabled: false,
		},
		Speech: SpeechConfig{
			Enabled:         false,
			Endpoint:        "https://api.openai.com/v1",
			TranscribeModel: "whisper-1",
			ChatModel:       "gpt-4o-mini",
			TTSModel:        "tts-1",
			TTSVoice:        "alloy",
			TTSFormat:       "mp3",
			MaxTokens:       1024,
			Temperature:     0,
		},
		Gateway: GatewayConfig{
			Enabled:      true,
			Port:         8080,
			Host:         "0.0.0.0",
			SharedSecret: "",
		},
		HTTP: HTTPConfig{
			Enabled:            true,
			Port:               3000,
			Host:               "0.0.0.0",
			SharedSecret:       "",
			RateLimitPerMinute: 100,
		},
		Probe: ProbeConfig{
			Enabled:  true,
			Schedule: "@every 5m",
		},
		Conversations: ConversationsConfig{
			IdleTTLMinutes:         30,
			CleanupIntervalMinutes: 5,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	clone := *c
	if clone.Agentforce.ClientSecret != "" {
		clone.Agentforce.ClientSecret = "[REDACTED]"
	}
	if clone.Speech.APIKey != "" {
		clone.Speech.APIKey = "[REDACTED]"
	}
	if clone.Gateway.SharedSecret != "" {
		clone.Gateway.SharedSecret = "[REDACTED]"
	}
	if clone.HTTP.SharedSecret != "" {
		clone.HTTP.SharedSecret = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(&clone, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid. Integrations may be
// disabled; enabled ones must be complete.
func (c *Config) Validate() error {
	if c.Agentforce.Enabled {
		if err := c.Agentforce.Check(); err != nil {
			return err
		}
	}
	if c.Speech.Enabled {
		if err := c.Speech.Check(); err != nil {
			return err
		}
	}

	if c.Gateway.Enabled {
		if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
			return fmt.Errorf("gateway port out of range: %d", c.Gateway.Port)
		}
	}
	if c.HTTP.Enabled {
		if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
			return fmt.Errorf("http port out of range: %d", c.HTTP.Port)
		}
		if c.HTTP.RateLimitPerMinute < 0 {
			return fmt.Errorf("http rate_limit_per_minute must be >= 0")
		}
	}
	if c.Gateway.Enabled && c.HTTP.Enabled && c.Gateway.Port == c.HTTP.Port {
		return fmt.Errorf("gateway and http servers cannot share port %d", c.Gateway.Port)
	}

	if c.Conversations.IdleTTLMinutes < 0 {
		return fmt.Errorf("conversations idle_ttl_minutes must be >= 0")
	}
	if c.Conversations.CleanupIntervalMinutes < 0 {
		return fmt.Errorf("conversations cleanup_interval_minutes must be >= 0")
	}

	return nil
}
