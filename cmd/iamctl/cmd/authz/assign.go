package authz

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/output"
)

var assignRoleCmd = &cobra.Command{
	Use:   "assign-role [user_id] [role_id]",
	Short: "Assign a role to a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, roleID := args[0], args[1]

		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		if err := c.Authorization.AssignRole(cmd.Context(), userID, roleID); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Assigned role '%s' to user '%s'\n", roleID, userID)
		if roles, ok := c.Authorization.Roles(userID); ok {
			return output.Roles(out, roles)
		}
		return nil
	},
}

var revokeRoleCmd = &cobra.Command{
	Use:   "revoke-role [user_id] [role_id]",
	Short: "Revoke a role from a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, roleID := args[0], args[1]

		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		if err := c.Authorization.RevokeRole(cmd.Context(), userID, roleID); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Revoked role '%s' from user '%s'\n", roleID, userID)
		return nil
	},
}
