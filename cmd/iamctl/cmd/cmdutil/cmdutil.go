package cmdutil

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/config"
	"github.com/terraconstructs/iamctl/pkg/console"
	"github.com/terraconstructs/iamctl/pkg/sdk"
	"golang.org/x/term"
)

// Console returns the command's console without requiring a session.
func Console(ctx context.Context) (*console.Console, error) {
	cfg := config.MustFromContext(ctx)
	return cfg.ClientProvider.Console(ctx)
}

// SessionConsole returns the console for commands that need credentials.
func SessionConsole(ctx context.Context) (*console.Console, error) {
	cfg := config.MustFromContext(ctx)
	return cfg.ClientProvider.RequireSession(ctx)
}

// StateError converts the error message a store recorded into an error.
func StateError(message string) error {
	if message == "" {
		return nil
	}
	return errors.New(message)
}

// ReadSecret prompts on stderr and reads a line without echo when stdin is a
// terminal, or a plain line otherwise (piped input).
func ReadSecret(prompt string, nonInteractive bool) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		if nonInteractive {
			return "", errors.New("password required in non-interactive mode (use --password or IAMCTL_PASSWORD)")
		}
		fmt.Fprint(os.Stderr, prompt)
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}
	return ReadLine(os.Stdin)
}

// ReadLine reads one line from r, without the line terminator.
func ReadLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// OptionalString returns a pointer to value when the named flag was set.
func OptionalString(changed bool, value string) *string {
	if !changed {
		return nil
	}
	return &value
}

// DescribeError expands a validation failure into one line per field.
func DescribeError(err error) error {
	var apiErr *sdk.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return err
	}
	var b strings.Builder
	b.WriteString("validation failed:")
	for _, f := range apiErr.Fields {
		if f.Field == "" {
			fmt.Fprintf(&b, "\n  %s", f.Message)
			continue
		}
		fmt.Fprintf(&b, "\n  %s: %s", f.Field, f.Message)
	}
	return errors.New(b.String())
}
