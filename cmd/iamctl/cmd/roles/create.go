package roles

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/pkg/sdk"
)

var (
	createName        string
	createDescription string
	createType        string
	createOrg         string
	createPermissions []string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a role",
	RunE: func(cmd *cobra.Command, args []string) error {
		if createName == "" {
			return fmt.Errorf("--name flag is required")
		}

		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		role, err := c.Roles.Create(cmd.Context(), sdk.CreateRoleInput{
			Name:          createName,
			Description:   createDescription,
			OrgID:         createOrg,
			RoleType:      createType,
			PermissionIDs: createPermissions,
		})
		if err != nil {
			return cmdutil.DescribeError(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created role %s (%s)\n", role.Name, role.ID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "Role name (required)")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Role description")
	createCmd.Flags().StringVar(&createType, "type", "", "Role type")
	createCmd.Flags().StringVar(&createOrg, "org", "", "Organization ID")
	createCmd.Flags().StringSliceVar(&createPermissions, "permission", nil, "Permission ID to grant (repeatable)")
}
