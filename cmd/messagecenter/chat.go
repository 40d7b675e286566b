package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	messagecenter "github.com/bishopmatthew/messagecenter"
	"github.com/bishopmatthew/messagecenter/identity"
	"github.com/bishopmatthew/messagecenter/metrics"
	"github.com/bishopmatthew/messagecenter/store"
	"github.com/bishopmatthew/messagecenter/terminal"
	"github.com/bishopmatthew/messagecenter/transport"
)

func newChatCmd(flags *globalFlags) *cobra.Command {
	var (
		trigger   string
		autoReply string
		email     string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the Message Center session in the terminal",
		Long: `Open the session for a trigger. The first time, the first-contact dialog
asks for an optional email and a message. In the live thread, type a line to
send it, "/attach <path>" to send a file and "/quit" to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			return runChat(ctx, cmd, st, chatSettings{
				options:   messagecenter.OptionsFromConfig(cfg),
				trigger:   messagecenter.Trigger(trigger),
				autoReply: autoReply,
				email:     email,
			})
		},
	}

	cmd.Flags().StringVarP(&trigger, "trigger", "t", string(messagecenter.TriggerMessageCenter), "Trigger (message_center, enjoyment_dialog)")
	cmd.Flags().StringVar(&autoReply, "auto-reply", "Thanks for reaching out! We'll reply here soon.", "Reply the in-process backend sends to every message (empty disables)")
	cmd.Flags().StringVar(&email, "initial-email", "", "Seed the initial contact address known to the host app")
	return cmd
}

type chatSettings struct {
	options   *messagecenter.Options
	trigger   messagecenter.Trigger
	autoReply string
	email     string
}

func runChat(ctx context.Context, cmd *cobra.Command, st store.Store, settings chatSettings) error {
	lb := transport.NewLoopback(st)
	lb.SetAutoReply(settings.autoReply)

	if n, err := lb.Flush(ctx); err != nil {
		return err
	} else if n > 0 {
		logrus.WithFields(logrus.Fields{
			"function":  "runChat",
			"delivered": n,
		}).Info("Delivered payloads queued by an earlier session")
	}

	surface := terminal.NewSurface(cmd.OutOrStdout())
	options := settings.options
	options.Metrics = &metrics.LogRecorder{Level: logrus.DebugLevel}

	c, err := messagecenter.New(st, lb, surface, surface, options)
	if err != nil {
		return err
	}
	defer c.Stop()

	if settings.email != "" {
		if err := seedInitialEmail(ctx, st, settings.email); err != nil {
			return err
		}
	}

	if err := c.Present(settings.trigger); err != nil {
		return err
	}
	if err := surface.Run(ctx, cmd.InOrStdin(), c); err != nil && ctx.Err() == nil {
		return err
	}
	surface.Close()

	return markAllRead(ctx, st)
}

func seedInitialEmail(ctx context.Context, st store.Store, email string) error {
	stored, err := identity.NewReconciler(st).SetInitialAddress(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to seed initial email: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "seedInitialEmail",
		"stored":   stored,
	}).Debug("Initial email seeded")
	return nil
}

// markAllRead marks every message shown in the session read.
func markAllRead(ctx context.Context, st store.Store) error {
	msgs, err := st.LoadAllMessages(ctx)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	var ids []int64
	for _, m := range msgs {
		if !m.Read {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return st.MarkRead(ctx, ids...)
}
