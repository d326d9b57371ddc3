package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateServerHost validates the agent platform My Domain host. It is a
// bare host, no scheme, no path.
func (v *Validator) ValidateServerHost(host string) error {
	if host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if strings.Contains(host, "://") {
		return fmt.Errorf("server host must not include a scheme: %s", host)
	}
	if strings.ContainsAny(host, "/ ") {
		return fmt.Errorf("server host must be a bare hostname: %s", host)
	}
	return nil
}

// ValidateEndpoint validates a provider base URL
func (v *Validator) ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must be http or https: %s", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint missing host: %s", endpoint)
	}
	return nil
}

// ValidateModel validates a model name
func (v *Validator) ValidateModel(model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateSchedule validates a probe cron schedule, including @every
// descriptors
func (v *Validator) ValidateSchedule(schedule string) error {
	if schedule == "" {
		return nil // Use default
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid probe schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidateTTSFormat validates the synthesis container format
func (v *Validator) ValidateTTSFormat(format string) error {
	if format == "" {
		return nil // Use default
	}
	validFormats := []string{"mp3", "opus", "aac", "flac", "wav", "pcm"}
	for _, valid := range validFormats {
		if format == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid tts format: %s (must be one of: %s)", format, strings.Join(validFormats, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if cfg.Agentforce.Enabled {
		if err := v.ValidateServerHost(cfg.Agentforce.ServerHost); err != nil {
			errors = append(errors, fmt.Errorf("agentforce: %w", err))
		}
		if strings.TrimSpace(cfg.Agentforce.ClientID) == "" {
			errors = append(errors, fmt.Errorf("agentforce: client_id is required"))
		}
		if strings.TrimSpace(cfg.Agentforce.ClientSecret) == "" {
			errors = append(errors, fmt.Errorf("agentforce: client_secret is required"))
		}
		if strings.TrimSpace(cfg.Agentforce.AgentID) == "" {
			errors = append(errors, fmt.Errorf("agentforce: agent_id is required"))
		}
	}

	if cfg.Speech.Enabled {
		if err := v.ValidateEndpoint(cfg.Speech.Endpoint); err != nil {
			errors = append(errors, fmt.Errorf("speech: %w", err))
		}
		if strings.TrimSpace(cfg.Speech.APIKey) == "" {
			errors = append(errors, fmt.Errorf("speech: api_key is required"))
		}
		for name, model := range map[string]string{
			"transcribe_model": cfg.Speech.TranscribeModel,
			"chat_model":       cfg.Speech.ChatModel,
			"tts_model":        cfg.Speech.TTSModel,
		} {
			if err := v.ValidateModel(model); err != nil {
				errors = append(errors, fmt.Errorf("speech %s: %w", name, err))
			}
		}
		if err := v.ValidateTemperature(cfg.Speech.Temperature); err != nil {
			errors = append(errors, fmt.Errorf("speech: %w", err))
		}
		if cfg.Speech.MaxTokens != 0 {
			if err := v.ValidateMaxTokens(cfg.Speech.MaxTokens); err != nil {
				errors = append(errors, fmt.Errorf("speech: %w", err))
			}
		}
		if err := v.ValidateTTSFormat(cfg.Speech.TTSFormat); err != nil {
			errors = append(errors, fmt.Errorf("speech: %w", err))
		}
	}

	if cfg.Probe.Enabled {
		if err := v.ValidateSchedule(cfg.Probe.Schedule); err != nil {
			errors = append(errors, err)
		}
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
