package auth

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.Console(cmd.Context())
		if err != nil {
			return err
		}

		st := c.Session.State()
		if !st.IsAuthenticated {
			return fmt.Errorf("not logged in")
		}

		out := cmd.OutOrStdout()
		pterm.DefaultSection.WithWriter(out).Println("Authentication Status")
		fmt.Fprintf(out, "Status:     %s\n", st.Status())
		fmt.Fprintf(out, "User:       %s (%s)\n", st.Identity.DisplayName(), st.Identity.Email)
		fmt.Fprintf(out, "User ID:    %s\n", st.Identity.ID)
		fmt.Fprintf(out, "Expires at: %s\n", output.Timestamp(st.ExpiresAt))

		c.Authorization.FetchUserRoles(cmd.Context(), st.Identity.ID)
		roles, ok := c.Authorization.Roles(st.Identity.ID)
		if !ok {
			pterm.Warning.WithWriter(cmd.ErrOrStderr()).Printf("Could not load roles: %s\n", c.Authorization.State().Error)
			return nil
		}

		pterm.DefaultSection.WithWriter(out).Println("Roles")
		return output.Roles(out, roles)
	},
}
