package users

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/pkg/sdk"
)

var updateCmd = &cobra.Command{
	Use:   "update [user_id]",
	Short: "Update a user",
	Long:  `Updates the given fields of a user. Fields whose flags are not passed are left untouched.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		input := sdk.UpdateUserInput{
			Email:        optional(cmd, "email"),
			Username:     optional(cmd, "username"),
			FirstName:    optional(cmd, "first-name"),
			LastName:     optional(cmd, "last-name"),
			OrgID:        optional(cmd, "org"),
			DepartmentID: optional(cmd, "department"),
		}
		if f.Changed("status") {
			status, _ := f.GetInt("status")
			input.StatusID = &status
		}
		if input == (sdk.UpdateUserInput{}) {
			return fmt.Errorf("nothing to update; pass at least one field flag")
		}

		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		user, err := c.Users.Update(cmd.Context(), args[0], input)
		if err != nil {
			return cmdutil.DescribeError(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated user %s (%s)\n", user.Username, user.ID)
		return nil
	},
}

func optional(cmd *cobra.Command, name string) *string {
	value, _ := cmd.Flags().GetString(name)
	return cmdutil.OptionalString(cmd.Flags().Changed(name), value)
}

func init() {
	f := updateCmd.Flags()
	f.String("email", "", "New email address")
	f.String("username", "", "New username")
	f.String("first-name", "", "New first name")
	f.String("last-name", "", "New last name")
	f.String("org", "", "New organization ID")
	f.String("department", "", "New department ID")
	f.Int("status", 0, "New status ID")
}
