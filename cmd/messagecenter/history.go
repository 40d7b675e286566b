package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bishopmatthew/messagecenter/messaging"
)

// historyEntry is the exported form of a stored message.
type historyEntry struct {
	ID         int64                 `json:"id"                   yaml:"id"`
	Nonce      string                `json:"nonce"                yaml:"nonce"`
	Kind       string                `json:"kind"                 yaml:"kind"`
	Sender     string                `json:"sender"               yaml:"sender"`
	State      string                `json:"state"                yaml:"state"`
	Read       bool                  `json:"read"                 yaml:"read"`
	Body       string                `json:"body,omitempty"       yaml:"body,omitempty"`
	Attachment *messaging.Attachment `json:"attachment,omitempty" yaml:"attachment,omitempty"`
	CreatedAt  time.Time             `json:"created_at"           yaml:"created_at"`
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the stored message thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			msgs, err := st.LoadAllMessages(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load messages: %w", err)
			}
			return writeHistory(cmd.OutOrStdout(), msgs, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, yaml)")
	return cmd
}

func writeHistory(w io.Writer, msgs []messaging.Message, format string) error {
	entries := make([]historyEntry, len(msgs))
	for i, m := range msgs {
		entries[i] = historyEntry{
			ID:         m.ID,
			Nonce:      m.Nonce,
			Kind:       m.Kind.String(),
			Sender:     m.Sender.String(),
			State:      m.State.String(),
			Read:       m.Read,
			Body:       m.Body,
			Attachment: m.Attachment,
			CreatedAt:  m.CreatedAt.UTC(),
		}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		if len(entries) == 0 {
			_, err := fmt.Fprintln(w, "No messages.")
			return err
		}
		for _, e := range entries {
			text := e.Body
			if e.Attachment != nil {
				text = "[file] " + e.Attachment.Name
			}
			if _, err := fmt.Fprintf(w, "%s  %-6s  %-7s  %s\n", e.CreatedAt.Format(time.RFC3339), e.Sender, e.State, text); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (use text, json or yaml)", format)
	}
}
