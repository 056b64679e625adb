package roles

import (
	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/internal/query"
)

// RolesCmd is the parent command for role operations
var RolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage roles",
	Long:  `Commands for listing, inspecting, creating, updating and deleting roles.`,
}

var matcher *query.Matcher

func init() {
	m, err := query.NewMatcher(query.DefaultCacheSize)
	if err != nil {
		panic(err)
	}
	matcher = m

	RolesCmd.AddCommand(listCmd)
	RolesCmd.AddCommand(getCmd)
	RolesCmd.AddCommand(createCmd)
	RolesCmd.AddCommand(updateCmd)
	RolesCmd.AddCommand(deleteCmd)
}
