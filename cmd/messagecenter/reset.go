package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bishopmatthew/messagecenter/identity"
	"github.com/bishopmatthew/messagecenter/store"
)

func newResetCmd(flags *globalFlags) *cobra.Command {
	var forgetIdentity bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Show the first-contact dialog again on the next chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SaveFlag(ctx, store.FlagFirstContactShown, false); err != nil {
				return fmt.Errorf("failed to reset first-contact flag: %w", err)
			}
			if forgetIdentity {
				if err := st.SaveIdentity(ctx, identity.Identity{}); err != nil {
					return fmt.Errorf("failed to clear identity: %w", err)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "First-contact dialog will be shown on the next chat.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&forgetIdentity, "identity", false, "Also forget the stored contact addresses")
	return cmd
}
