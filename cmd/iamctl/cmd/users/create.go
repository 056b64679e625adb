package users

import (
	"fmt"
	"net/mail"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/config"
	"github.com/terraconstructs/iamctl/pkg/sdk"
)

var (
	createEmail      string
	createUsername   string
	createPassword   string
	createFirstName  string
	createLastName   string
	createOrg        string
	createDepartment string
	createRoles      []string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		if createEmail == "" {
			return fmt.Errorf("--email flag is required")
		}
		if createUsername == "" {
			return fmt.Errorf("--username flag is required")
		}
		if _, err := mail.ParseAddress(createEmail); err != nil {
			return fmt.Errorf("invalid email format: %w", err)
		}

		password := createPassword
		if password == "" {
			var err error
			password, err = cmdutil.ReadSecret("Password for new user: ", cfg.NonInteractive)
			if err != nil {
				return err
			}
		}

		c, err := cmdutil.SessionConsole(cmd.Context())
		if err != nil {
			return err
		}

		user, err := c.Users.Create(cmd.Context(), sdk.CreateUserInput{
			Email:        createEmail,
			Username:     createUsername,
			Password:     password,
			FirstName:    createFirstName,
			LastName:     createLastName,
			OrgID:        createOrg,
			DepartmentID: createDepartment,
		})
		if err != nil {
			return cmdutil.DescribeError(err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created user %s (%s)\n", user.Username, user.ID)
		for _, roleID := range createRoles {
			if err := c.Authorization.AssignRole(cmd.Context(), user.ID, roleID); err != nil {
				return fmt.Errorf("user created but role %s could not be assigned: %w", roleID, err)
			}
			fmt.Fprintf(out, "Assigned role %s\n", roleID)
		}
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createEmail, "email", "", "Email address (required)")
	createCmd.Flags().StringVar(&createUsername, "username", "", "Username (required)")
	createCmd.Flags().StringVar(&createPassword, "password", "", "Initial password (prompted when omitted)")
	createCmd.Flags().StringVar(&createFirstName, "first-name", "", "First name")
	createCmd.Flags().StringVar(&createLastName, "last-name", "", "Last name")
	createCmd.Flags().StringVar(&createOrg, "org", "", "Organization ID")
	createCmd.Flags().StringVar(&createDepartment, "department", "", "Department ID")
	createCmd.Flags().StringSliceVar(&createRoles, "role", nil, "Role ID to assign after creation (repeatable)")
}
