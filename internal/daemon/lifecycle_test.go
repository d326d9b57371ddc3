package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxgate/voxgate/internal/config"
	"github.com/voxgate/voxgate/internal/logger"
)

func newLifecycleDaemon(t *testing.T, dataDir string) (*Daemon, *logger.Logger) {
	t.Helper()

	store := config.NewStoreWithConfig(testConfig(dataDir))

	log, err := logger.New(logger.Config{
		Level:   "info",
		Console: false,
	})
	require.NoError(t, err)

	d, err := New(store, log)
	require.NoError(t, err)

	return d, log
}

func TestNewLifecycleManager(t *testing.T) {
	tmpDir := t.TempDir()

	d, log := newLifecycleDaemon(t, tmpDir)
	defer log.Close()

	lm := NewLifecycleManager(d)
	assert.NotNil(t, lm)
	assert.Equal(t, d, lm.daemon)
	assert.Equal(t, filepath.Join(tmpDir, "voxgate.pid"), lm.pidFile)
}

func TestLifecycleManagerStartStop(t *testing.T) {
	tmpDir := t.TempDir()

	d, log := newLifecycleDaemon(t, tmpDir)
	defer log.Close()

	lm := NewLifecycleManager(d)

	// Start
	err := lm.Start()
	require.NoError(t, err)

	// Verify PID file exists
	_, err = os.Stat(lm.pidFile)
	assert.NoError(t, err)

	// Stop
	err = lm.Stop()
	require.NoError(t, err)

	// Verify PID file is removed
	_, err = os.Stat(lm.pidFile)
	assert.True(t, os.IsNotExist(err))
}

func TestLifecycleManagerGetPID(t *testing.T) {
	tmpDir := t.TempDir()

	d, log := newLifecycleDaemon(t, tmpDir)
	defer log.Close()

	lm := NewLifecycleManager(d)

	// Start to create PID file
	err := lm.Start()
	require.NoError(t, err)
	defer lm.Stop()

	// Get PID
	pid, err := lm.GetPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}
