package auth

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear stored credentials",
	Long: `Invalidates the access token on the gateway when possible and always
clears the stored session, even if the gateway cannot be reached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.Console(cmd.Context())
		if err != nil {
			return err
		}

		c.Session.Logout(cmd.Context())

		fmt.Fprintln(cmd.OutOrStdout(), "Logged out successfully")
		return nil
	},
}
