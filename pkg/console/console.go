// Package console wires the gateway client, credential persistence,
// notifications and every store into one explicitly constructed container.
// Presentation layers receive it through a context instead of globals.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/terraconstructs/iamctl/pkg/credstore"
	"github.com/terraconstructs/iamctl/pkg/notify"
	"github.com/terraconstructs/iamctl/pkg/sdk"
	"github.com/terraconstructs/iamctl/pkg/store"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Options configures a Console. Only BaseURL is required.
type Options struct {
	BaseURL string

	// Credentials overrides CredentialsDSN with a ready store.
	Credentials sdk.CredentialStore
	// CredentialsDSN selects the persistence backend, see credstore.Open.
	CredentialsDSN string

	// BearerToken is sent on every request instead of the session's token.
	// Nothing is refreshed or persisted in this mode.
	BearerToken string

	HTTPClient    *http.Client
	Timeout       time.Duration
	Logger        *zap.Logger
	Registerer    prometheus.Registerer
	OnAuthFailure sdk.AuthFailureHandler
	UserAgent     string
	// NotificationBuffer sizes the notification bus.
	NotificationBuffer int
	// HealthServices overrides the probed services.
	HealthServices []string
	Clock          func() time.Time
}

// Console is the application state container.
type Console struct {
	Client        *sdk.Client
	Notifications *notify.Bus
	Session       *store.Session
	Users         *store.Users
	Roles         *store.Roles
	Permissions   *store.Permissions
	Authorization *store.Authorization
	Health        *store.Health

	logger *zap.Logger
	closer io.Closer
}

// New builds the container: it opens persistence, binds the session to the
// client and rehydrates the session.
func New(ctx context.Context, opts Options) (*Console, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("console: base URL is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	creds := opts.Credentials
	var closer io.Closer
	if creds == nil {
		var err error
		creds, closer, err = credstore.Open(ctx, opts.CredentialsDSN)
		if err != nil {
			return nil, fmt.Errorf("open credential store: %w", err)
		}
	}

	bus := notify.NewBus(opts.NotificationBuffer)

	clientOpts := []sdk.ClientOption{
		sdk.WithNotifier(bus),
		sdk.WithLogger(logger),
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, sdk.WithHTTPClient(opts.HTTPClient))
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, sdk.WithTimeout(opts.Timeout))
	}
	if opts.Registerer != nil {
		clientOpts = append(clientOpts, sdk.WithMetricsRegisterer(opts.Registerer))
	}
	if opts.OnAuthFailure != nil {
		clientOpts = append(clientOpts, sdk.WithAuthFailureHandler(opts.OnAuthFailure))
	}
	if opts.UserAgent != "" {
		clientOpts = append(clientOpts, sdk.WithUserAgent(opts.UserAgent))
	}
	if opts.BearerToken != "" {
		clientOpts = append(clientOpts, sdk.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.BearerToken,
			TokenType:   "Bearer",
		})))
	}
	client := sdk.NewClient(opts.BaseURL, clientOpts...)

	storeOpts := []store.Option{
		store.WithNotifier(bus),
		store.WithLogger(logger),
	}
	if opts.Clock != nil {
		storeOpts = append(storeOpts, store.WithClock(opts.Clock))
	}

	session := store.NewSession(client, creds, storeOpts...)
	if opts.BearerToken == "" {
		client.BindSession(session)
	} else {
		logger.Debug("using ephemeral bearer token, session not bound")
	}

	return &Console{
		Client:        client,
		Notifications: bus,
		Session:       session,
		Users:         store.NewUsers(client, storeOpts...),
		Roles:         store.NewRoles(client, storeOpts...),
		Permissions:   store.NewPermissions(client, storeOpts...),
		Authorization: store.NewAuthorization(client, storeOpts...),
		Health:        store.NewHealth(client, opts.HealthServices, storeOpts...),
		logger:        logger,
		closer:        closer,
	}, nil
}

// Close flushes pending notifications and releases persistence.
func (c *Console) Close() error {
	c.Notifications.Close()
	if c.closer == nil {
		return nil
	}
	if err := c.closer.Close(); err != nil {
		return fmt.Errorf("close credential store: %w", err)
	}
	return nil
}

type consoleKey struct{}

// WithConsole returns a context carrying c.
func WithConsole(ctx context.Context, c *Console) context.Context {
	return context.WithValue(ctx, consoleKey{}, c)
}

// FromContext returns the console carried by ctx.
func FromContext(ctx context.Context) (*Console, bool) {
	c, ok := ctx.Value(consoleKey{}).(*Console)
	return c, ok && c != nil
}

// MustFromContext is FromContext for code paths where a missing console is a
// programming error.
func MustFromContext(ctx context.Context) *Console {
	c, ok := FromContext(ctx)
	if !ok {
		panic("console: no console in context")
	}
	return c
}
