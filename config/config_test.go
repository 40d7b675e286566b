package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.PollSeconds, cfg.PollSeconds)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 8*time.Second, cfg.PollInterval())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
message_center_enabled: false
message_center_email_required: true
message_center_fg_poll_seconds: 15
app_display_name: Acme
store_path: /tmp/mc.db
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.EmailRequired)
	assert.Equal(t, 15*time.Second, cfg.PollInterval())
	assert.Equal(t, "Acme", cfg.AppDisplayName)
	assert.Equal(t, "/tmp/mc.db", cfg.StorePath)
	assert.Equal(t, Default().MaxAttachmentBytes, cfg.MaxAttachmentBytes)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("message_center_fg_poll_seconds: 15\n"), 0o600))

	t.Setenv("MESSAGECENTER_FG_POLL_SECONDS", "3")
	t.Setenv("MESSAGECENTER_APP_DISPLAY_NAME", "From Env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.PollSeconds)
	assert.Equal(t, "From Env", cfg.AppDisplayName)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero poll", "message_center_fg_poll_seconds: 0\n"},
		{"negative poll", "message_center_fg_poll_seconds: -5\n"},
		{"negative attachment limit", "max_attachment_bytes: -1\n"},
		{"malformed", "message_center_enabled: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mc.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestValidatePollInterval(t *testing.T) {
	cfg := Default()
	cfg.PollSeconds = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidPollInterval)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mc.yaml")
	cfg := Default()
	cfg.AppDisplayName = "Saved"
	cfg.PollSeconds = 20

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
