package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/voxgate.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/voxgate.json", loader.configPath)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("should return defaults when file is missing", func(t *testing.T) {
		loader := NewLoader(filepath.Join(t.TempDir(), "voxgate.json"))

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.False(t, cfg.Agentforce.Enabled)
		assert.Equal(t, 8080, cfg.Gateway.Port)
		assert.NotEmpty(t, cfg.DataDir)
		assert.NotEmpty(t, cfg.Logging.File)
	})

	t.Run("should overlay file values onto defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "voxgate.json")
		content := `{
  "agentforce": {
    "enabled": true,
    "server_host": "acme.my.salesforce.com",
    "client_id": "3MVG9test",
    "client_secret": "shh",
    "agent_id": "0XxKj000000l2BXKAY"
  },
  "gateway": {"port": 9090},
  "logging": {"level": "debug"}
}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))

		cfg, err := NewLoader(path).Load()
		require.NoError(t, err)

		assert.True(t, cfg.Agentforce.Enabled)
		assert.Equal(t, "acme.my.salesforce.com", cfg.Agentforce.ServerHost)
		assert.Equal(t, 9090, cfg.Gateway.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		// Untouched sections keep defaults
		assert.Equal(t, 3000, cfg.HTTP.Port)
		assert.Equal(t, "whisper-1", cfg.Speech.TranscribeModel)
	})

	t.Run("should fail on malformed JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "voxgate.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := NewLoader(path).Load()
		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	t.Run("should round trip through disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "voxgate.json")
		loader := NewLoader(path)

		cfg := validTestConfig()
		cfg.Gateway.Port = 9191
		require.NoError(t, loader.Save(cfg))

		loaded, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, 9191, loaded.Gateway.Port)
		assert.Equal(t, "acme.my.salesforce.com", loaded.Agentforce.ServerHost)
		assert.Equal(t, "supersecret", loaded.Agentforce.ClientSecret)
	})

	t.Run("should restrict file permissions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "voxgate.json")
		require.NoError(t, NewLoader(path).Save(DefaultConfig()))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})
}

func TestGetConfigPath(t *testing.T) {
	t.Run("explicit path wins", func(t *testing.T) {
		loader := NewLoader("/tmp/custom.json")
		assert.Equal(t, "/tmp/custom.json", loader.GetConfigPath())
	})

	t.Run("defaults under the home directory", func(t *testing.T) {
		loader := NewLoader("")
		path := loader.GetConfigPath()
		assert.Contains(t, path, ".voxgate")
		assert.Contains(t, path, "voxgate.json")
	})
}

func TestStore(t *testing.T) {
	t.Run("should cache between gets", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "voxgate.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"gateway":{"port":9001}}`), 0600))

		store := NewStore(path)
		first, err := store.Get()
		require.NoError(t, err)
		assert.Equal(t, 9001, first.Gateway.Port)

		// Change on disk is not seen until invalidated
		require.NoError(t, os.WriteFile(path, []byte(`{"gateway":{"port":9002}}`), 0600))
		second, err := store.Get()
		require.NoError(t, err)
		assert.Equal(t, 9001, second.Gateway.Port)

		store.Invalidate()
		third, err := store.Get()
		require.NoError(t, err)
		assert.Equal(t, 9002, third.Gateway.Port)
	})

	t.Run("reload swaps the cache", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "voxgate.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"gateway":{"port":9001}}`), 0600))

		store := NewStore(path)
		_, err := store.Get()
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(path, []byte(`{"gateway":{"port":9003}}`), 0600))
		cfg, err := store.Reload()
		require.NoError(t, err)
		assert.Equal(t, 9003, cfg.Gateway.Port)
	})

	t.Run("seeded store serves without disk", func(t *testing.T) {
		cfg := validTestConfig()
		store := NewStoreWithConfig(cfg)

		got, err := store.Get()
		require.NoError(t, err)
		assert.Same(t, cfg, got)
	})
}
