package roles

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/output"
)

var getCmd = &cobra.Command{
	Use:   "get [role_id]",
	Short: "Show a role and its permissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		c.Roles.FetchByID(cmd.Context(), args[0])
		st := c.Roles.State()
		if err := cmdutil.StateError(st.Error); err != nil {
			return fmt.Errorf("failed to get role: %w", err)
		}
		role := st.Current
		if role == nil {
			return fmt.Errorf("role %s not found", args[0])
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:          %s\n", role.ID)
		fmt.Fprintf(out, "Name:        %s\n", role.Name)
		fmt.Fprintf(out, "Description: %s\n", role.Description)
		fmt.Fprintf(out, "Type:        %s\n", role.RoleType)
		fmt.Fprintf(out, "Users:       %d\n", role.UserCount)

		pterm.DefaultSection.WithWriter(out).Println("Permissions")
		return output.Permissions(out, role.Permissions)
	},
}
