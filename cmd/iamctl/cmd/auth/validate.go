package auth

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Ask the gateway whether the stored access token is valid",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.Console(cmd.Context())
		if err != nil {
			return err
		}

		valid, err := c.Session.Validate(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to validate token: %w", err)
		}
		if !valid {
			return fmt.Errorf("access token is not valid; please run `iamctl auth refresh` or `iamctl auth login`")
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Access token is valid")
		return nil
	},
}
