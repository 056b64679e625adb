package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/terraconstructs/iamctl/pkg/console"
	"github.com/terraconstructs/iamctl/pkg/notify"
	"github.com/terraconstructs/iamctl/pkg/sdk"
	"go.uber.org/zap"
)

// Provider yields the console container on first use, so commands that never
// talk to the gateway (help, dev servers) do not open the credential store.
type Provider struct {
	opts        console.Options
	bearerToken string // ephemeral token that bypasses credential store
	onNotify    func(notify.Notification)

	consoleOnce sync.Once
	console     *console.Console
	consoleErr  error
	unsubscribe func()
}

// NewProvider constructs a Provider bound to the given server URL.
func NewProvider(serverURL string) *Provider {
	return &Provider{opts: console.Options{BaseURL: serverURL, UserAgent: "iamctl"}}
}

// SetBearerToken injects an ephemeral bearer token (bypasses credential store).
func (p *Provider) SetBearerToken(token string) {
	p.bearerToken = token
}

// SetCredentialsDSN selects the credential backend, see credstore.Open.
func (p *Provider) SetCredentialsDSN(dsn string) {
	p.opts.CredentialsDSN = dsn
}

// SetCredentialStore replaces the DSN-selected backend.
func (p *Provider) SetCredentialStore(store sdk.CredentialStore) {
	p.opts.Credentials = store
}

func (p *Provider) SetTimeout(timeout time.Duration) {
	p.opts.Timeout = timeout
}

func (p *Provider) SetLogger(logger *zap.Logger) {
	p.opts.Logger = logger
}

// OnNotification registers the renderer for bus notifications.
func (p *Provider) OnNotification(fn func(notify.Notification)) {
	p.onNotify = fn
}

// Console returns the lazily built console.
func (p *Provider) Console(ctx context.Context) (*console.Console, error) {
	p.consoleOnce.Do(func() {
		opts := p.opts
		opts.BearerToken = p.bearerToken
		opts.OnAuthFailure = func(ctx context.Context, err error) {
			logger := opts.Logger
			if logger == nil {
				logger = zap.NewNop()
			}
			logger.Debug("session ended by gateway", zap.Error(err))
		}

		c, err := console.New(ctx, opts)
		if err != nil {
			p.consoleErr = err
			return
		}
		if p.onNotify != nil {
			p.unsubscribe = c.Notifications.Subscribe(p.onNotify)
		}
		p.console = c
	})
	if p.consoleErr != nil {
		return nil, p.consoleErr
	}

	return p.console, nil
}

// SDKClient returns the console's gateway client.
func (p *Provider) SDKClient(ctx context.Context) (*sdk.Client, error) {
	c, err := p.Console(ctx)
	if err != nil {
		return nil, err
	}
	return c.Client, nil
}

// RequireSession fails when neither a stored session nor a bearer token is available.
func (p *Provider) RequireSession(ctx context.Context) (*console.Console, error) {
	c, err := p.Console(ctx)
	if err != nil {
		return nil, err
	}
	if p.bearerToken == "" && !c.Session.State().IsAuthenticated {
		return nil, errors.New("not logged in; please run `iamctl auth login`")
	}
	return c, nil
}

// Close flushes notifications and releases the credential store. It is a
// no-op when the console was never built.
func (p *Provider) Close() error {
	if p.console == nil {
		return nil
	}
	err := p.console.Close()
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
	if err != nil {
		return fmt.Errorf("close console: %w", err)
	}
	return nil
}
