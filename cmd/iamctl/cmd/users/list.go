package users

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/output"
	"github.com/terraconstructs/iamctl/internal/query"
)

var (
	listOrg    string
	listFilter string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Long: `Lists users, optionally scoped to one organization.

--filter takes a bexpr expression over the user fields id, email, username,
first_name, last_name, org_id, department_id, auth_type_id, user_type_id and
status_id, for example:

  iamctl users list --filter 'username matches "^adm"'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Fail on a bad expression before touching the network.
		if listFilter != "" {
			if _, err := matcher.Compile(listFilter); err != nil {
				return err
			}
		}

		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		if listOrg != "" {
			c.Users.FetchByOrganization(cmd.Context(), listOrg)
		} else {
			c.Users.FetchAll(cmd.Context())
		}
		st := c.Users.State()
		if err := cmdutil.StateError(st.Error); err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		users, err := query.Filter(matcher, st.Items, listFilter)
		if err != nil {
			return err
		}
		return output.Users(cmd.OutOrStdout(), users)
	},
}

func init() {
	listCmd.Flags().StringVar(&listOrg, "org", "", "Only list users of this organization")
	listCmd.Flags().StringVar(&listFilter, "filter", "", "bexpr filter expression (e.g. org_id == \"acme\")")
}
