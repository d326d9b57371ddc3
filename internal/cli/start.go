package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/daemon"
	"github.com/voxgate/voxgate/internal/logger"
)

var startDetach bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the voxgate daemon service",
	Long: `Start the voxgate daemon service.
The daemon serves the websocket gateway and the HTTP voice API, and keeps
the upstream agent and speech connections warm. By default it runs in the
foreground; pass --detach to fork into the background.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startDetach, "detach", false, "run the daemon in the background")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Check if daemon is already running
	pidFile := pidFilePath(cfg)
	if isRunning(pidFile) {
		return fmt.Errorf("daemon is already running (PID file: %s)", pidFile)
	}

	if startDetach {
		return startDetached(cmd)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    true,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	store := config.NewStore(cfgFile)

	d, err := daemon.New(store, log)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	cmd.Println("voxgate daemon started")

	// Block until SIGINT/SIGTERM
	d.Wait()

	return nil
}

// startDetached re-executes this binary in its own session so the daemon
// survives the launching terminal.
func startDetached(cmd *cobra.Command) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable: %w", err)
	}

	childArgs := []string{"start"}
	if cfgFile != "" {
		childArgs = append(childArgs, "--config", cfgFile)
	}
	if logLevel != "" {
		childArgs = append(childArgs, "--log-level", logLevel)
	}

	child := exec.Command(exe, childArgs...)
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	child.Stdin = nil
	child.Stdout = nil
	child.Stderr = nil

	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start detached daemon: %w", err)
	}

	cmd.Printf("voxgate daemon started (PID %d)\n", child.Process.Pid)
	return child.Process.Release()
}

// pidFilePath resolves the PID file next to the daemon's data, matching
// where the lifecycle manager writes it.
func pidFilePath(cfg *config.Config) string {
	if cfg != nil && cfg.DataDir != "" {
		return filepath.Join(cfg.DataDir, "voxgate.pid")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/voxgate.pid"
	}
	return filepath.Join(home, ".voxgate", "voxgate.pid")
}

// getPIDFilePath resolves the PID file from the configured data directory,
// falling back to the default location when the config cannot be read.
func getPIDFilePath() string {
	if cfg, err := config.Load(cfgFile); err == nil {
		return pidFilePath(cfg)
	}
	return pidFilePath(nil)
}

func isRunning(pidFile string) bool {
	if _, err := os.Stat(pidFile); os.IsNotExist(err) {
		return false
	}

	// Read PID and check if process exists
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return false
	}

	var pid int
	_, err = fmt.Sscanf(string(data), "%d", &pid)
	if err != nil {
		return false
	}

	// Check if process exists
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds, so we need to send signal 0
	err = process.Signal(os.Signal(nil))
	return err == nil
}
