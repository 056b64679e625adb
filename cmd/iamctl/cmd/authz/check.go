package authz

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
)

// ErrDenied is returned by check so scripts can branch on the exit status.
var ErrDenied = errors.New("permission denied")

var checkCmd = &cobra.Command{
	Use:   "check [user_id] [resource] [action]",
	Short: "Check whether a user may perform an action on a resource",
	Long: `Asks the gateway whether the user holds the permission. Any failure to
obtain an answer is reported as denied.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, resource, action := args[0], args[1], args[2]

		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		if !c.Authorization.CheckPermission(cmd.Context(), userID, resource, action) {
			fmt.Fprintf(cmd.OutOrStdout(), "DENIED  %s %s:%s\n", userID, resource, action)
			return ErrDenied
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ALLOWED %s %s:%s\n", userID, resource, action)
		return nil
	},
}
