package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bishopmatthew/messagecenter/config"
	"github.com/bishopmatthew/messagecenter/store"
)

var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	storePath  string
	verbose    bool
	logFormat  string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "messagecenter",
		Short: "Run and inspect a Message Center feedback thread",
		Long: `A reference host for the Message Center session controller.

It runs the first-contact flow and the live thread in the terminal against an
in-process backend, and lets you inspect or reset the local state.

Quick Start:
  messagecenter chat                 # Open the session
  messagecenter history --format json
  messagecenter reset                # Show the first-contact dialog again`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd, flags)
		},
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", defaultConfigPath(), "Path to the YAML config file")
	root.PersistentFlags().StringVar(&flags.storePath, "store", "", "Override the message store path")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newChatCmd(flags),
		newHistoryCmd(flags),
		newResetCmd(flags),
	)
	return root
}

func setupLogging(cmd *cobra.Command, flags *globalFlags) error {
	logrus.SetOutput(cmd.ErrOrStderr())
	if flags.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	switch flags.logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unsupported log format %q (use text or json)", flags.logFormat)
	}
	return nil
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.storePath != "" {
		cfg.StorePath = flags.storePath
	}
	return cfg, nil
}

// openStore opens the SQLite store named by cfg, creating its directory.
func openStore(ctx context.Context, cfg *config.Config) (*store.SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return store.OpenSQLite(ctx, cfg.StorePath)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "messagecenter.yaml"
	}
	return filepath.Join(dir, "messagecenter", "config.yaml")
}
