package roles

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/output"
	"github.com/terraconstructs/iamctl/internal/query"
)

var listFilter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List roles",
	Long: `Lists roles with their user counts and permissions.

--filter takes a bexpr expression over id, name, description, org_id,
role_type, is_system and user_count, for example:

  iamctl roles list --filter 'role_type == "system"'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listFilter != "" {
			if _, err := matcher.Compile(listFilter); err != nil {
				return err
			}
		}

		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		c.Roles.FetchAll(cmd.Context())
		st := c.Roles.State()
		if err := cmdutil.StateError(st.Error); err != nil {
			return fmt.Errorf("failed to list roles: %w", err)
		}

		roles, err := query.Filter(matcher, st.Items, listFilter)
		if err != nil {
			return err
		}
		return output.Roles(cmd.OutOrStdout(), roles)
	},
}

func init() {
	listCmd.Flags().StringVar(&listFilter, "filter", "", "bexpr filter expression (e.g. name matches \"^ad\")")
}
