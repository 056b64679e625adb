package authz

import (
	"github.com/spf13/cobra"
)

// AuthzCmd is the parent command for role grants and permission checks
var AuthzCmd = &cobra.Command{
	Use:   "authz",
	Short: "Grant roles and inspect effective access",
	Long: `Commands for assigning and revoking roles and for inspecting a user's
effective roles and permissions. Roles are reported the way the gateway
resolves them, including roles inherited through the role hierarchy.`,
}

func init() {
	AuthzCmd.AddCommand(assignRoleCmd)
	AuthzCmd.AddCommand(revokeRoleCmd)
	AuthzCmd.AddCommand(rolesCmd)
	AuthzCmd.AddCommand(permissionsCmd)
	AuthzCmd.AddCommand(checkCmd)
}
