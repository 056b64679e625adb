package authz

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/output"
)

var rolesCmd = &cobra.Command{
	Use:   "roles [user_id]",
	Short: "List a user's effective roles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		c.Authorization.FetchUserRoles(cmd.Context(), args[0])
		roles, ok := c.Authorization.Roles(args[0])
		if !ok {
			return fmt.Errorf("failed to get user roles: %w", cmdutil.StateError(c.Authorization.State().Error))
		}
		return output.Roles(cmd.OutOrStdout(), roles)
	},
}

var permissionsCmd = &cobra.Command{
	Use:   "permissions [user_id]",
	Short: "List a user's effective permissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		c.Authorization.FetchUserPermissions(cmd.Context(), args[0])
		perms, ok := c.Authorization.Permissions(args[0])
		if !ok {
			return fmt.Errorf("failed to get user permissions: %w", cmdutil.StateError(c.Authorization.State().Error))
		}
		return output.Permissions(cmd.OutOrStdout(), perms)
	},
}
