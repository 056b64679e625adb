package users

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/output"
)

var getCmd = &cobra.Command{
	Use:   "get [user_id]",
	Short: "Show a user and the roles granted to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID := args[0]

		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		c.Users.FetchByID(cmd.Context(), userID)
		st := c.Users.State()
		if err := cmdutil.StateError(st.Error); err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		u := st.Current
		if u == nil {
			return fmt.Errorf("user %s not found", userID)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:         %s\n", u.ID)
		fmt.Fprintf(out, "Email:      %s\n", u.Email)
		fmt.Fprintf(out, "Username:   %s\n", u.Username)
		fmt.Fprintf(out, "Name:       %s %s\n", u.FirstName, u.LastName)
		fmt.Fprintf(out, "Org:        %s\n", u.OrgID)
		fmt.Fprintf(out, "Department: %s\n", u.DepartmentID)
		fmt.Fprintf(out, "Created:    %s\n", output.Timestamp(u.CreatedAt))
		fmt.Fprintf(out, "Updated:    %s\n", output.Timestamp(u.UpdatedAt))

		c.Authorization.FetchUserRoles(cmd.Context(), u.ID)
		if roles, ok := c.Authorization.Roles(u.ID); ok {
			pterm.DefaultSection.WithWriter(out).Println("Roles")
			return output.Roles(out, roles)
		}
		return nil
	},
}
