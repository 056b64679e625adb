package console

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/iamctl/internal/mockgateway"
	"github.com/terraconstructs/iamctl/pkg/credstore"
	"github.com/terraconstructs/iamctl/pkg/notify"
	"github.com/terraconstructs/iamctl/pkg/sdk"
	"github.com/terraconstructs/iamctl/pkg/store"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	gateway *mockgateway.Gateway
	server  *httptest.Server
	creds   *credstore.MemoryStore
	console *Console

	mu       sync.Mutex
	received []notify.Notification
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	g, err := mockgateway.New(mockgateway.Options{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	srv := httptest.NewServer(g.Handler())
	t.Cleanup(srv.Close)

	h := &harness{gateway: g, server: srv, creds: credstore.NewMemoryStore(nil)}
	opts := Options{
		BaseURL:     srv.URL + mockgateway.DefaultBasePath,
		Credentials: h.creds,
		HTTPClient:  srv.Client(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	c, err := New(context.Background(), opts)
	require.NoError(t, err)
	c.Notifications.Subscribe(func(n notify.Notification) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.received = append(h.received, n)
	})
	h.console = c
	return h
}

// notifications closes the console, which flushes the bus, and returns what was delivered.
func (h *harness) notifications(t *testing.T) []notify.Notification {
	t.Helper()
	require.NoError(t, h.console.Close())
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]notify.Notification(nil), h.received...)
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	require.NoError(t, h.console.Session.Login(context.Background(), sdk.LoginInput{
		Email:    mockgateway.DefaultAdminEmail,
		Password: mockgateway.DefaultAdminPassword,
	}))
	require.Equal(t, store.StatusAuthenticated, h.console.Session.State().Status())
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)
}

func TestConsole_RefreshesOnceAndRetries(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	before := h.console.Session.State().AccessToken

	h.gateway.RevokeAccessTokens()
	h.console.Users.FetchAll(context.Background())

	st := h.console.Users.State()
	assert.Empty(t, st.Error)
	require.Len(t, st.Items, 1)
	assert.Equal(t, mockgateway.DefaultAdminEmail, st.Items[0].Email)

	session := h.console.Session.State()
	assert.Equal(t, store.StatusAuthenticated, session.Status())
	assert.NotEqual(t, before, session.AccessToken)
	assert.Equal(t, 1, h.gateway.Calls("/auth/refresh"))
	assert.Equal(t, 2, h.gateway.Calls("/users"))

	persisted, err := h.creds.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, session.AccessToken, persisted.AccessToken)
}

func TestConsole_FailedRefreshEndsSession(t *testing.T) {
	var failures []error
	h := newHarness(t, func(o *Options) {
		o.OnAuthFailure = func(ctx context.Context, err error) { failures = append(failures, err) }
	})
	h.login(t)

	h.gateway.RevokeAccessTokens()
	h.gateway.RevokeRefreshTokens()
	h.console.Roles.FetchAll(context.Background())

	assert.Equal(t, store.StatusAnonymous, h.console.Session.State().Status())
	assert.NotEmpty(t, h.console.Roles.State().Error)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], sdk.ErrAuthentication)

	_, err := h.creds.LoadCredentials()
	assert.ErrorIs(t, err, sdk.ErrNotLoggedIn)

	var errs int
	for _, n := range h.notifications(t) {
		if n.Level == notify.LevelError {
			errs++
		}
	}
	assert.GreaterOrEqual(t, errs, 1)
}

func TestConsole_RehydratesFromStore(t *testing.T) {
	first := newHarness(t, nil)
	first.login(t)

	c, err := New(context.Background(), Options{
		BaseURL:     first.server.URL + mockgateway.DefaultBasePath,
		Credentials: first.creds,
		HTTPClient:  first.server.Client(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	st := c.Session.State()
	assert.True(t, st.IsAuthenticated)
	require.NotNil(t, st.Identity)
	assert.Equal(t, mockgateway.DefaultAdminEmail, st.Identity.Email)

	c.Permissions.FetchAll(context.Background())
	assert.NotEmpty(t, c.Permissions.State().Items)
}

func TestConsole_BearerTokenBypassesSession(t *testing.T) {
	first := newHarness(t, nil)
	first.login(t)
	token := first.console.Session.State().AccessToken

	c, err := New(context.Background(), Options{
		BaseURL:     first.server.URL + mockgateway.DefaultBasePath,
		Credentials: credstore.NewMemoryStore(nil),
		HTTPClient:  first.server.Client(),
		BearerToken: token,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.False(t, c.Session.State().IsAuthenticated)
	c.Users.FetchAll(context.Background())
	assert.Empty(t, c.Users.State().Error)
	assert.Len(t, c.Users.State().Items, 1)
}

func TestConsole_Health(t *testing.T) {
	h := newHarness(t, nil)

	h.console.Health.Refresh(context.Background())

	st := h.console.Health.State()
	assert.True(t, st.AllHealthy())
	assert.Len(t, st.Services, len(sdk.HealthServices))
}

func TestContextHelpers(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	assert.Panics(t, func() { MustFromContext(context.Background()) })

	c := &Console{Notifications: notify.NewBus(1)}
	t.Cleanup(func() { _ = c.Close() })
	ctx := WithConsole(context.Background(), c)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, c, got)
	assert.Same(t, c, MustFromContext(ctx))
}

func TestNew_OpensStoreFromDSN(t *testing.T) {
	c, err := New(context.Background(), Options{
		BaseURL:        "http://127.0.0.1:1/api",
		CredentialsDSN: "memory:",
		HTTPClient:     http.DefaultClient,
	})
	require.NoError(t, err)
	assert.Equal(t, store.StatusAnonymous, c.Session.State().Status())
	require.NoError(t, c.Close())
}
