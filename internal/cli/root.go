package cli

import (
	"github.com/spf13/cobra"
)

// version is stamped at build time via
// -ldflags "-X github.com/voxgate/voxgate/internal/cli.version=...".
var version = "0.1.0"

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voxgate",
	Short: "Voxgate - voice gateway for the Agentforce platform",
	Long: `Voxgate is a server-side voice gateway. It bridges browser voice
front ends to the Salesforce Agentforce agent API and an OpenAI-compatible
speech provider for transcription, chat fallback, and synthesis.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.voxgate/voxgate.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
