package users

import (
	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/internal/query"
)

// UsersCmd is the parent command for user management
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
	Long:  `Commands for listing, inspecting, creating, updating and deleting users.`,
}

var matcher *query.Matcher

func init() {
	m, err := query.NewMatcher(query.DefaultCacheSize)
	if err != nil {
		panic(err)
	}
	matcher = m

	UsersCmd.AddCommand(listCmd)
	UsersCmd.AddCommand(getCmd)
	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(updateCmd)
	UsersCmd.AddCommand(deleteCmd)
}
