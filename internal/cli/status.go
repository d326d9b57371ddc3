package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/voxgate/voxgate/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Show the current status of the voxgate daemon service,
including whether the gateway answers its health endpoint.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	pidFile := pidFilePath(cfg)
	if !isRunning(pidFile) {
		cmd.Println("Status: stopped")
		return nil
	}

	pid, err := readPID(pidFile)
	if err != nil {
		return err
	}

	cmd.Println("Status: running")
	cmd.Printf("PID: %d\n", pid)
	if uptime, ok := pidFileUptime(pidFile); ok {
		cmd.Printf("Uptime: %s\n", formatDuration(uptime))
	}

	if cfg.Gateway.Enabled {
		cmd.Printf("Gateway: %s\n", probeGatewayHealth(cfg))
	}

	return nil
}

// pidFileUptime approximates daemon uptime from the PID file mtime.
func pidFileUptime(pidFile string) (time.Duration, bool) {
	fileInfo, err := os.Stat(pidFile)
	if err != nil {
		return 0, false
	}
	return time.Since(fileInfo.ModTime()), true
}

// probeGatewayHealth polls the gateway health endpoint. Any HTTP answer
// counts as healthy detail; a transport error means the port is dark.
func probeGatewayHealth(cfg *config.Config) string {
	host := cfg.Gateway.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	url := fmt.Sprintf("http://%s:%d/healthz", host, cfg.Gateway.Port)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Sprintf("unreachable (%v)", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return "healthy"
	}
	return fmt.Sprintf("unhealthy (%s)", resp.Status)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
