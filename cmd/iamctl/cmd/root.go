package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/auth"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/authz"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/dev"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/health"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/permissions"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/roles"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/users"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/client"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/config"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/output"
	"github.com/terraconstructs/iamctl/internal/logging"
	"github.com/terraconstructs/iamctl/pkg/notify"
	"go.uber.org/zap"
)

var (
	flags config.GlobalConfig
	// active is the configuration of the running command, closed by run.
	active *config.GlobalConfig
)

var rootCmd = &cobra.Command{
	Use:   "iamctl",
	Short: "iamctl - IAM console client",
	Long: `iamctl is the command-line console for an IAM API gateway. Use it to log in,
manage users, roles and permissions, grant roles and check the health of the
backing services.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := flags

		level := cfg.LogLevel
		if cfg.Debug && level == "" {
			level = "debug"
		}
		logger, err := logging.New(level, cfg.Debug)
		if err != nil {
			return err
		}

		provider := client.NewProvider(cfg.ServerURL)
		provider.SetCredentialsDSN(cfg.CredentialsDSN)
		provider.SetTimeout(cfg.Timeout)
		provider.SetLogger(logger)
		if cfg.Token != "" {
			provider.SetBearerToken(cfg.Token)
		}
		provider.OnNotification(notificationFilter(cfg.Debug, output.NotificationPrinter(cmd.ErrOrStderr())))
		cfg.ClientProvider = provider
		active = &cfg

		ctx := logging.WithLogger(cmd.Context(), logger)
		cmd.SetContext(config.InjectConfig(ctx, &cfg))
		return nil
	},
}

// notificationFilter drops error notifications unless debugging: the failing
// command reports the same error itself.
func notificationFilter(debug bool, next func(notify.Notification)) func(notify.Notification) {
	return func(n notify.Notification) {
		if n.Level == notify.LevelError && !debug {
			return
		}
		next(n)
	}
}

// Execute runs the root command
func Execute() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run executes args and always releases the console, even when the command
// fails, so queued notifications are flushed.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	active = nil
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if active != nil {
		if closeErr := active.ClientProvider.Close(); closeErr != nil {
			logging.FromContext(ctx).Warn("failed to release console", zap.Error(closeErr))
		}
	}
	return err
}

func init() {
	defaults := config.Load()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.ServerURL, "server", defaults.ServerURL, "IAM gateway base URL (env: IAMCTL_SERVER)")
	pf.StringVar(&flags.CredentialsDSN, "credentials", defaults.CredentialsDSN, "Credential store: file path, sqlite path, postgres:// DSN or memory: (env: IAMCTL_CREDENTIALS)")
	pf.StringVar(&flags.LogLevel, "log-level", defaults.LogLevel, "Log level: debug, info, warn, error (env: IAMCTL_LOG_LEVEL)")
	pf.DurationVar(&flags.Timeout, "timeout", defaults.Timeout, "Per-request timeout (env: IAMCTL_TIMEOUT)")
	pf.StringVar(&flags.Token, "token", defaults.Token, "Ephemeral bearer token, bypasses the stored session (env: IAMCTL_TOKEN)")
	pf.BoolVar(&flags.NonInteractive, "non-interactive", defaults.NonInteractive, "Disable interactive prompts (also set via IAMCTL_NON_INTERACTIVE=1)")
	pf.BoolVar(&flags.Debug, "debug", defaults.Debug, "Enable debug logging and show every notification (env: IAMCTL_DEBUG)")

	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(roles.RolesCmd)
	rootCmd.AddCommand(permissions.PermissionsCmd)
	rootCmd.AddCommand(authz.AuthzCmd)
	rootCmd.AddCommand(health.HealthCmd)
	rootCmd.AddCommand(dev.DevCmd)
}
