package roles

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/pkg/sdk"
)

var updateCmd = &cobra.Command{
	Use:   "update [role_id]",
	Short: "Update a role",
	Long: `Updates the given fields of a role. --permission replaces the role's whole
permission set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		input := sdk.UpdateRoleInput{
			Name:        optional(cmd, "name"),
			Description: optional(cmd, "description"),
			RoleType:    optional(cmd, "type"),
		}
		if f.Changed("permission") {
			input.PermissionIDs, _ = f.GetStringSlice("permission")
		}
		if input.Name == nil && input.Description == nil && input.RoleType == nil && input.PermissionIDs == nil {
			return fmt.Errorf("nothing to update; pass at least one field flag")
		}

		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		role, err := c.Roles.Update(cmd.Context(), args[0], input)
		if err != nil {
			return cmdutil.DescribeError(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated role %s (%s)\n", role.Name, role.ID)
		return nil
	},
}

func optional(cmd *cobra.Command, name string) *string {
	value, _ := cmd.Flags().GetString(name)
	return cmdutil.OptionalString(cmd.Flags().Changed(name), value)
}

func init() {
	f := updateCmd.Flags()
	f.String("name", "", "New role name")
	f.String("description", "", "New description")
	f.String("type", "", "New role type")
	f.StringSlice("permission", nil, "Permission ID (repeatable, replaces the current set)")
}
