package auth

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/output"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the stored refresh token for a new access token",
	Long: `Refreshes the access token. When the gateway rejects the refresh token the
stored session is cleared and you need to log in again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.Console(cmd.Context())
		if err != nil {
			return err
		}

		if err := c.Session.RefreshToken(cmd.Context()); err != nil {
			return fmt.Errorf("failed to refresh session: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Access token refreshed, expires at %s\n", output.Timestamp(c.Session.State().ExpiresAt))
		return nil
	},
}
