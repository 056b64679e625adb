package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/iamctl/pkg/credstore"
	"github.com/terraconstructs/iamctl/pkg/sdk"
)

const testServer = "http://127.0.0.1:1/api"

func TestProviderBuildsConsoleOnce(t *testing.T) {
	p := NewProvider(testServer)
	p.SetCredentialStore(credstore.NewMemoryStore(nil))
	t.Cleanup(func() { require.NoError(t, p.Close()) })

	first, err := p.Console(context.Background())
	require.NoError(t, err)
	second, err := p.Console(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)

	client, err := p.SDKClient(context.Background())
	require.NoError(t, err)
	assert.Same(t, first.Client, client)
	assert.Equal(t, testServer, client.BaseURL())
}

func TestProviderRequireSession(t *testing.T) {
	tests := []struct {
		name    string
		creds   *sdk.Credentials
		bearer  string
		wantErr bool
	}{
		{name: "no credentials", wantErr: true},
		{name: "bearer token", bearer: "static-token"},
		{
			name: "stored session",
			creds: &sdk.Credentials{
				AccessToken:     "access",
				RefreshToken:    "refresh",
				IsAuthenticated: true,
				User:            &sdk.UserIdentity{ID: "u1", Email: "ann@example.com"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(testServer)
			p.SetCredentialStore(credstore.NewMemoryStore(tt.creds))
			if tt.bearer != "" {
				p.SetBearerToken(tt.bearer)
			}
			t.Cleanup(func() { require.NoError(t, p.Close()) })

			c, err := p.RequireSession(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "iamctl auth login")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestProviderCloseWithoutConsole(t *testing.T) {
	assert.NoError(t, NewProvider(testServer).Close())
}

func TestProviderReportsConstructionError(t *testing.T) {
	p := NewProvider("")
	_, err := p.Console(context.Background())
	require.Error(t, err)

	_, err = p.SDKClient(context.Background())
	assert.Error(t, err, "the construction error is sticky")
}
