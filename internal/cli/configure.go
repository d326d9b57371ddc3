package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/voxgate/voxgate/internal/config"
)

var (
	configureShow     bool
	configureDefaults bool
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Run interactive configuration wizard",
	Long: `Run an interactive configuration wizard to set up voxgate.
The wizard walks through the Agentforce connected app, the speech provider,
and the serving surfaces. Use --defaults to write the default skeleton
without prompts, or --show to print the current config with secrets masked.`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().BoolVar(&configureShow, "show", false, "print the current configuration with secrets masked")
	configureCmd.Flags().BoolVar(&configureDefaults, "defaults", false, "write the default configuration without prompts")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)

	if configureShow {
		cfg, err := loader.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cmd.Println(cfg.String())
		return nil
	}

	var cfg *config.Config
	if configureDefaults {
		cfg = config.DefaultConfig()
	} else {
		wizard := config.NewWizard()
		made, err := wizard.Run()
		if err != nil {
			return fmt.Errorf("configuration failed: %w", err)
		}
		cfg = made
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Save configuration
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("\nConfiguration saved to: %s\n", loader.GetConfigPath())
	cmd.Println("\nYou can now start voxgate with: voxgate start")

	return nil
}
