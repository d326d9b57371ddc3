package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
}

// NewWizard creates a new configuration wizard
func NewWizard() *Wizard {
	return &Wizard{
		reader: bufio.NewReader(os.Stdin),
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Println("=== voxgate Configuration Wizard ===")
	fmt.Println()

	cfg := DefaultConfig()
	validator := NewValidator()

	// Agent platform
	fmt.Println("Agent platform (Salesforce Agentforce):")
	fmt.Println()

	fmt.Print("Enable the agent integration? (y/n) [y]: ")
	enable, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if enable == "" || strings.ToLower(enable) == "y" {
		cfg.Agentforce.Enabled = true

		for {
			fmt.Print("My Domain host (e.g. acme.my.salesforce.com): ")
			host, err := w.readLine()
			if err != nil {
				return nil, err
			}
			if err := validator.ValidateServerHost(host); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			cfg.Agentforce.ServerHost = host
			break
		}

		cfg.Agentforce.ClientID, err = w.require("Connected app consumer key (client id): ")
		if err != nil {
			return nil, err
		}
		cfg.Agentforce.ClientSecret, err = w.require("Connected app consumer secret (client secret): ")
		if err != nil {
			return nil, err
		}
		cfg.Agentforce.AgentID, err = w.require("Agent id: ")
		if err != nil {
			return nil, err
		}

		fmt.Print("Org id (press Enter to skip): ")
		orgID, err := w.readLine()
		if err != nil {
			return nil, err
		}
		cfg.Agentforce.OrgID = orgID
	}

	fmt.Println()

	// Speech provider
	fmt.Println("Speech provider (OpenAI-compatible):")
	fmt.Println()

	fmt.Print("Enable the speech integration? (y/n) [y]: ")
	enable, err = w.readLine()
	if err != nil {
		return nil, err
	}

	if enable == "" || strings.ToLower(enable) == "y" {
		cfg.Speech.Enabled = true

		for {
			fmt.Printf("API endpoint [%s]: ", cfg.Speech.Endpoint)
			endpoint, err := w.readLine()
			if err != nil {
				return nil, err
			}
			if endpoint == "" {
				break
			}
			if err := validator.ValidateEndpoint(endpoint); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			cfg.Speech.Endpoint = endpoint
			break
		}

		cfg.Speech.APIKey, err = w.require("API key: ")
		if err != nil {
			return nil, err
		}
	}

	fmt.Println()

	// Log Level
	fmt.Println("Logging:")
	fmt.Print("Log level (debug/info/warn/error) [info]: ")
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Printf("Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Println()
	fmt.Println("Configuration complete!")

	return cfg, nil
}

// require prompts until a non-empty value is entered
func (w *Wizard) require(prompt string) (string, error) {
	for {
		fmt.Print(prompt)
		value, err := w.readLine()
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
		fmt.Println("Error: a value is required")
	}
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
