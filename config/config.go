package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/bishopmatthew/messagecenter/limits"
)

// ErrInvalidPollInterval is returned when the poll interval is not positive.
var ErrInvalidPollInterval = errors.New("message_center_fg_poll_seconds must be positive")

// Config is the host configuration for Message Center sessions.
type Config struct {
	Enabled            bool   `env:"MESSAGECENTER_ENABLED"              yaml:"message_center_enabled"`
	EmailRequired      bool   `env:"MESSAGECENTER_EMAIL_REQUIRED"       yaml:"message_center_email_required"`
	PollSeconds        int    `env:"MESSAGECENTER_FG_POLL_SECONDS"      yaml:"message_center_fg_poll_seconds"`
	AppDisplayName     string `env:"MESSAGECENTER_APP_DISPLAY_NAME"     yaml:"app_display_name"`
	StorePath          string `env:"MESSAGECENTER_STORE_PATH"           yaml:"store_path"`
	AttachmentDir      string `env:"MESSAGECENTER_ATTACHMENT_DIR"       yaml:"attachment_dir"`
	MaxAttachmentBytes int64  `env:"MESSAGECENTER_MAX_ATTACHMENT_BYTES" yaml:"max_attachment_bytes"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Enabled:            true,
		EmailRequired:      false,
		PollSeconds:        8,
		AppDisplayName:     "this app",
		StorePath:          defaultDataPath("messagecenter.db"),
		AttachmentDir:      defaultDataPath("attachments"),
		MaxAttachmentBytes: limits.MaxAttachmentSize,
	}
}

// Load reads path over the defaults, then applies MESSAGECENTER_*
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks the values that would make a session misbehave.
func (c *Config) Validate() error {
	if c.PollSeconds <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPollInterval, c.PollSeconds)
	}
	if c.MaxAttachmentBytes < 0 {
		return fmt.Errorf("max_attachment_bytes must not be negative: got %d", c.MaxAttachmentBytes)
	}
	return nil
}

// PollInterval returns the foreground poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

func defaultDataPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "messagecenter", name)
}
