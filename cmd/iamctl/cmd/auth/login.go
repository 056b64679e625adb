package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/config"
	"github.com/terraconstructs/iamctl/pkg/sdk"
)

var (
	emailFlag    string
	passwordFlag string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password",
	Long: `Authenticates against the gateway's /auth/login endpoint and stores the
session in the credential store.

Credentials are taken, in order, from --email/--password, from the
IAMCTL_EMAIL and IAMCTL_PASSWORD environment variables, and finally from an
interactive prompt. A failed login leaves any previous session untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.MustFromContext(cmd.Context())

		input, err := resolveCredentials(cfg.NonInteractive)
		if err != nil {
			return err
		}

		c, err := cmdutil.Console(cmd.Context())
		if err != nil {
			return err
		}
		if err := c.Session.Login(cmd.Context(), input); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		st := c.Session.State()
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "------------------------------------------------------------")
		fmt.Fprintf(out, "✅ Login successful!\n")
		if st.Identity != nil {
			fmt.Fprintf(out, "Authenticated as: %s (%s)\n", st.Identity.DisplayName(), st.Identity.Email)
		}
		return nil
	},
}

func resolveCredentials(nonInteractive bool) (sdk.LoginInput, error) {
	input := sdk.LoginInput{Email: strings.TrimSpace(emailFlag), Password: passwordFlag}
	if ok, env := sdk.CheckEnvCreds(); ok {
		if input.Email == "" {
			input.Email = env.Email
		}
		if input.Password == "" {
			input.Password = env.Password
		}
	}

	if input.Email == "" {
		if nonInteractive {
			return input, fmt.Errorf("--email is required in non-interactive mode")
		}
		fmt.Fprint(os.Stderr, "Email: ")
		email, err := cmdutil.ReadLine(os.Stdin)
		if err != nil {
			return input, err
		}
		input.Email = strings.TrimSpace(email)
	}
	if input.Password == "" {
		password, err := cmdutil.ReadSecret("Password: ", nonInteractive)
		if err != nil {
			return input, err
		}
		input.Password = password
	}
	return input, nil
}

func init() {
	loginCmd.Flags().StringVar(&emailFlag, "email", "", "Account email")
	loginCmd.Flags().StringVar(&passwordFlag, "password", "", "Account password (prompted when omitted)")
}
