package users

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [user_id]",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		if err := c.Users.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", args[0])
		return nil
	},
}
