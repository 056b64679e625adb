package permissions

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/output"
	"github.com/terraconstructs/iamctl/internal/query"
	"github.com/terraconstructs/iamctl/pkg/sdk"
)

// PermissionsCmd is the parent command for permission operations
var PermissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "List and create permissions",
}

var (
	matcher *query.Matcher

	listFilter string

	createName        string
	createResource    string
	createAction      string
	createDescription string
	createCategory    string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List permissions",
	Long: `Lists every grantable (resource, action) pair.

--filter takes a bexpr expression over id, name, resource, action,
description and category, for example:

  iamctl permissions list --filter 'resource == "users"'`,
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

		c.Permissions.FetchAll(cmd.Context())
		st := c.Permissions.State()
		if err := cmdutil.StateError(st.Error); err != nil {
			return fmt.Errorf("failed to list permissions: %w", err)
		}

		perms, err := query.Filter(matcher, st.Items, listFilter)
		if err != nil {
			return err
		}
		return output.Permissions(cmd.OutOrStdout(), perms)
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a permission",
	RunE: func(cmd *cobra.Command, args []string) error {
		if createResource == "" || createAction == "" {
			return fmt.Errorf("--resource and --action flags are required")
		}
		name := createName
		if name == "" {
			name = createResource + ":" + createAction
		}

		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		perm, err := c.Permissions.Create(cmd.Context(), sdk.CreatePermissionInput{
			Name:        name,
			Resource:    createResource,
			Action:      createAction,
			Description: createDescription,
			Category:    createCategory,
		})
		if err != nil {
			return cmdutil.DescribeError(err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created permission %s:%s (%s)\n", perm.Resource, perm.Action, perm.ID)
		return nil
	},
}

func init() {
	m, err := query.NewMatcher(query.DefaultCacheSize)
	if err != nil {
		panic(err)
	}
	matcher = m

	listCmd.Flags().StringVar(&listFilter, "filter", "", "bexpr filter expression (e.g. action == \"read\")")

	createCmd.Flags().StringVar(&createName, "name", "", "Display name (defaults to resource:action)")
	createCmd.Flags().StringVar(&createResource, "resource", "", "Resource (required)")
	createCmd.Flags().StringVar(&createAction, "action", "", "Action (required)")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Description")
	createCmd.Flags().StringVar(&createCategory, "category", "", "Category")

	PermissionsCmd.AddCommand(listCmd)
	PermissionsCmd.AddCommand(createCmd)
}
