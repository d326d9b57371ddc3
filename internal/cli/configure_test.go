package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureCommand(t *testing.T) {
	t.Run("command exists", func(t *testing.T) {
		cmd := GetRootCmd()
		configureCmd := cmd.Commands()

		found := false
		for _, c := range configureCmd {
			if c.Name() == "configure" {
				found = true
				break
			}
		}
		assert.True(t, found, "configure command should exist")
	})

	t.Run("help text", func(t *testing.T) {
		cmd := GetRootCmd()
		cmd.SetArgs([]string{"configure", "--help"})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)
		defer resetConfigureFlags()

		helpText := output.String()
		assert.Contains(t, helpText, "interactive configuration wizard")
		assert.Contains(t, helpText, "show")
		assert.Contains(t, helpText, "defaults")
	})

	t.Run("defaults writes skeleton", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfgPath := filepath.Join(tmpDir, "voxgate.json")

		cmd := GetRootCmd()
		cmd.SetArgs([]string{"configure", "--defaults", "--config", cfgPath})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)
		defer resetConfigureFlags()

		assert.Contains(t, output.String(), "Configuration saved to")
		_, err = os.Stat(cfgPath)
		assert.NoError(t, err)
	})

	t.Run("show masks secrets", func(t *testing.T) {
		tmpDir := t.TempDir()
		cfgPath := filepath.Join(tmpDir, "voxgate.json")
		cfgJSON := `{"speech":{"enabled":true,"endpoint":"https://api.openai.com/v1","api_key":"sk-secret","transcribe_model":"whisper-1","chat_model":"gpt-4o-mini","tts_model":"tts-1","tts_voice":"alloy","tts_format":"mp3","max_tokens":1024}}`
		require.NoError(t, os.WriteFile(cfgPath, []byte(cfgJSON), 0600))

		cmd := GetRootCmd()
		cmd.SetArgs([]string{"configure", "--show", "--config", cfgPath})

		output := &bytes.Buffer{}
		cmd.SetOut(output)

		err := cmd.Execute()
		require.NoError(t, err)
		defer resetConfigureFlags()

		shown := output.String()
		assert.Contains(t, shown, "[REDACTED]")
		assert.NotContains(t, shown, "sk-secret")
	})
}

// resetConfigureFlags clears package-level flag state so later subtests see
// cobra defaults again.
func resetConfigureFlags() {
	configureShow = false
	configureDefaults = false
	cfgFile = ""
	if f := configureCmd.Flags().Lookup("help"); f != nil {
		_ = f.Value.Set("false")
		f.Changed = false
	}
}
