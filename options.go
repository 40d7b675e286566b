package messagecenter

import (
	"time"

	"github.com/bishopmatthew/messagecenter/async"
	"github.com/bishopmatthew/messagecenter/config"
	"github.com/bishopmatthew/messagecenter/limits"
	"github.com/bishopmatthew/messagecenter/metrics"
)

// Options configures a Controller.
type Options struct {
	// Enabled false forces the first-contact dialog on every Present.
	Enabled       bool
	EmailRequired bool
	PollInterval  time.Duration

	AppDisplayName string

	// AttachmentDir is where file messages are copied. Empty disables
	// file messages.
	AttachmentDir      string
	MaxAttachmentBytes int64

	Dispatcher   Dispatcher
	Metrics      metrics.Recorder
	TimeProvider async.TimeProvider
}

// NewOptions creates default options.
func NewOptions() *Options {
	return &Options{
		Enabled:            true,
		EmailRequired:      false,
		PollInterval:       8 * time.Second,
		AppDisplayName:     "this app",
		MaxAttachmentBytes: limits.MaxAttachmentSize,
	}
}

// OptionsFromConfig maps loaded configuration onto controller options.
func OptionsFromConfig(cfg *config.Config) *Options {
	options := NewOptions()
	if cfg == nil {
		return options
	}
	options.Enabled = cfg.Enabled
	options.EmailRequired = cfg.EmailRequired
	options.PollInterval = cfg.PollInterval()
	if cfg.AppDisplayName != "" {
		options.AppDisplayName = cfg.AppDisplayName
	}
	options.AttachmentDir = cfg.AttachmentDir
	options.MaxAttachmentBytes = cfg.MaxAttachmentBytes
	return options
}
