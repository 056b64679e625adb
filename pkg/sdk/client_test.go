package sdk_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/iamctl/pkg/notify"
	"github.com/terraconstructs/iamctl/pkg/sdk"
	"golang.org/x/oauth2"
)

// fakeSession is a SessionBinding whose refresh swaps in a fixed token.
type fakeSession struct {
	mu         sync.Mutex
	token      string
	next       string
	refreshErr error
	block      func()
	// ctxErr is the refresh context's error once block returned
	ctxErr error

	refreshes atomic.Int32
	ended     atomic.Int32
}

func (f *fakeSession) Token() (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token == "" {
		return nil, sdk.ErrNoToken
	}
	return &oauth2.Token{AccessToken: f.token, TokenType: "Bearer"}, nil
}

func (f *fakeSession) RefreshAccessToken(ctx context.Context) (string, error) {
	f.refreshes.Add(1)
	if f.block != nil {
		f.block()
	}
	f.mu.Lock()
	f.ctxErr = ctx.Err()
	f.mu.Unlock()
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = f.next
	return f.token, nil
}

func (f *fakeSession) EndSession(ctx context.Context) {
	f.ended.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// tokenServer answers 200 for the accepted bearer token and 401 otherwise.
func tokenServer(t *testing.T, accepted string, requests *atomic.Int32, ids chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if ids != nil {
			ids <- r.Header.Get("X-Request-ID")
		}
		if r.Header.Get("Authorization") != "Bearer "+accepted {
			writeBody(w, http.StatusUnauthorized, `{"success":false,"error":"Token expired"}`)
			return
		}
		writeBody(w, http.StatusOK, `{"success":true,"data":[]}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		writeBody(w, http.StatusOK, `{"success":true,"data":[{"id":"u1","email":"a@example.com","username":"a"}]}`)
	}))
	defer srv.Close()

	client := sdk.NewClient(srv.URL, sdk.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc"})))
	users, err := client.ListUsers(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestClient_WithoutTokenSendsUnauthenticated(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeBody(w, http.StatusOK, `{"success":true,"data":{"status":"healthy"}}`)
	}))
	defer srv.Close()

	client := sdk.NewClient(srv.URL)
	client.BindSession(&fakeSession{})
	report, err := client.Health(context.Background(), "gateway")

	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.Equal(t, "gateway", report.Service)
	assert.True(t, report.Healthy())
}

func TestClient_RefreshesOnceAndRetries(t *testing.T) {
	var requests atomic.Int32
	ids := make(chan string, 2)
	srv := tokenServer(t, "new", &requests, ids)

	session := &fakeSession{token: "old", next: "new"}
	client := sdk.NewClient(srv.URL)
	client.BindSession(session)

	_, err := client.ListRoles(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, int32(1), session.refreshes.Load())
	assert.Equal(t, int32(0), session.ended.Load())

	first, retry := <-ids, <-ids
	assert.Equal(t, first, retry, "the retry keeps the request id")
}

func TestClient_SecondUnauthorizedEndsSession(t *testing.T) {
	var requests atomic.Int32
	srv := tokenServer(t, "never-issued", &requests, nil)

	rec := &notify.Recorder{}
	var handled atomic.Int32
	session := &fakeSession{token: "old", next: "new"}
	client := sdk.NewClient(srv.URL,
		sdk.WithNotifier(rec),
		sdk.WithAuthFailureHandler(func(ctx context.Context, err error) {
			handled.Add(1)
		}),
	)
	client.BindSession(session)

	_, err := client.ListUsers(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, sdk.ErrAuthentication)
	assert.Equal(t, int32(2), requests.Load(), "no further retry after the second 401")
	assert.Equal(t, int32(1), session.refreshes.Load())
	assert.Equal(t, int32(1), session.ended.Load())
	assert.Equal(t, int32(1), handled.Load())
	assert.Contains(t, rec.Messages(notify.LevelError), "Token expired")
}

func TestClient_RefreshFailureEndsSession(t *testing.T) {
	var requests atomic.Int32
	srv := tokenServer(t, "new", &requests, nil)

	session := &fakeSession{token: "old", refreshErr: errors.New("refresh rejected")}
	client := sdk.NewClient(srv.URL)
	client.BindSession(session)

	_, err := client.ListUsers(context.Background())

	var apiErr *sdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, sdk.KindAuthentication, apiErr.Kind)
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, int32(1), session.ended.Load())
}

func TestClient_ReplacedSessionIsNotEnded(t *testing.T) {
	var requests atomic.Int32
	srv := tokenServer(t, "new", &requests, nil)

	var handled atomic.Int32
	session := &fakeSession{token: "old", refreshErr: fmt.Errorf("refresh token: %w", sdk.ErrSessionReplaced)}
	client := sdk.NewClient(srv.URL, sdk.WithAuthFailureHandler(func(ctx context.Context, err error) {
		handled.Add(1)
	}))
	client.BindSession(session)

	_, err := client.ListUsers(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, sdk.ErrAuthentication)
	assert.ErrorIs(t, err, sdk.ErrSessionReplaced)
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, int32(0), session.ended.Load())
	assert.Equal(t, int32(0), handled.Load())
}

func TestClient_RefreshOutlivesCancelledCaller(t *testing.T) {
	var requests atomic.Int32
	srv := tokenServer(t, "new", &requests, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := &fakeSession{token: "old", next: "new", block: cancel}
	client := sdk.NewClient(srv.URL)
	client.BindSession(session)

	_, err := client.ListUsers(ctx)

	// the caller is gone, so its replay fails, but the session survives
	assert.ErrorIs(t, err, sdk.ErrTransport)
	session.mu.Lock()
	assert.NoError(t, session.ctxErr)
	assert.Equal(t, "new", session.token)
	session.mu.Unlock()
	assert.Equal(t, int32(0), session.ended.Load())
}

func TestClient_UnauthorizedWithoutSession(t *testing.T) {
	var requests atomic.Int32
	srv := tokenServer(t, "new", &requests, nil)

	client := sdk.NewClient(srv.URL, sdk.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "old"})))
	_, err := client.ListUsers(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, sdk.ErrAuthentication)
	assert.ErrorIs(t, err, sdk.ErrNoRefreshToken)
	assert.Equal(t, int32(1), requests.Load())
}

func TestClient_AuthEndpointsSkipRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		writeBody(w, http.StatusUnauthorized, `{"success":false,"error":"Invalid email or password"}`)
	}))
	defer srv.Close()

	session := &fakeSession{token: "old", next: "new"}
	client := sdk.NewClient(srv.URL)
	client.BindSession(session)

	_, err := client.Login(context.Background(), sdk.LoginInput{Email: "a@example.com", Password: "wrong"})

	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", sdk.ErrorMessage(err, ""))
	assert.Equal(t, int32(0), session.refreshes.Load())
	assert.Equal(t, int32(0), session.ended.Load())
}

func TestClient_LoginValidatesInput(t *testing.T) {
	client := sdk.NewClient("http://127.0.0.1:1")
	_, err := client.Login(context.Background(), sdk.LoginInput{Email: "a@example.com"})

	var apiErr *sdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, sdk.KindValidation, apiErr.Kind)
	assert.Equal(t, map[string]string{"password": "password is required"}, apiErr.FieldMessages())
}

func TestClient_ErrorEnvelopes(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    sdk.ErrorKind
		wantMessage string
		wantFields  map[string]string
		wantNotify  bool
	}{
		{
			name:        "not found",
			status:      http.StatusNotFound,
			body:        `{"success":false,"error":"User not found"}`,
			wantKind:    sdk.KindNotFound,
			wantMessage: "User not found",
			wantNotify:  true,
		},
		{
			name:        "conflict",
			status:      http.StatusConflict,
			body:        `{"success":false,"error":{"message":"Email taken"}}`,
			wantKind:    sdk.KindConflict,
			wantMessage: "Email taken",
			wantNotify:  true,
		},
		{
			name:        "field errors",
			status:      http.StatusUnprocessableEntity,
			body:        `{"success":false,"errors":[{"field":"email","message":"Email is required"}]}`,
			wantKind:    sdk.KindValidation,
			wantMessage: "email: Email is required",
			wantFields:  map[string]string{"email": "Email is required"},
			wantNotify:  true,
		},
		{
			name:        "field error map",
			status:      http.StatusBadRequest,
			body:        `{"success":false,"errors":{"name":"too short"}}`,
			wantKind:    sdk.KindValidation,
			wantMessage: "name: too short",
			wantFields:  map[string]string{"name": "too short"},
			wantNotify:  true,
		},
		{
			name:        "forbidden",
			status:      http.StatusForbidden,
			body:        `{"success":false,"message":"Insufficient permissions"}`,
			wantKind:    sdk.KindForbidden,
			wantMessage: "Insufficient permissions",
			wantNotify:  true,
		},
		{
			name:        "server error without text",
			status:      http.StatusInternalServerError,
			body:        ``,
			wantKind:    sdk.KindServer,
			wantMessage: "Internal Server Error",
		},
		{
			name:        "success false on 200",
			status:      http.StatusOK,
			body:        `{"success":false,"error":"Something went wrong"}`,
			wantKind:    sdk.KindServer,
			wantMessage: "Something went wrong",
			wantNotify:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeBody(w, tt.status, tt.body)
			}))
			defer srv.Close()

			rec := &notify.Recorder{}
			client := sdk.NewClient(srv.URL, sdk.WithNotifier(rec))
			_, err := client.GetUser(context.Background(), "u1")

			var apiErr *sdk.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantFields, apiErr.FieldMessages())
			if tt.wantNotify {
				assert.Equal(t, []string{tt.wantMessage}, rec.Messages(notify.LevelError))
			} else {
				assert.Empty(t, rec.Notifications())
			}
		})
	}
}

func TestClient_TimeoutIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := sdk.NewClient(srv.URL, sdk.WithTimeout(50*time.Millisecond))
	_, err := client.ListUsers(context.Background())

	var apiErr *sdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.ErrorIs(t, err, sdk.ErrTransport)
	assert.Equal(t, "request timed out", apiErr.Message)
}

func TestClient_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	const callers = 5

	var unauthorized sync.WaitGroup
	unauthorized.Add(callers)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new" {
			unauthorized.Done()
			writeBody(w, http.StatusUnauthorized, `{"success":false}`)
			return
		}
		writeBody(w, http.StatusOK, `{"success":true,"data":[]}`)
	}))
	defer srv.Close()

	session := &fakeSession{token: "old", next: "new", block: func() {
		// hold the flight open until every caller has seen its 401
		unauthorized.Wait()
		time.Sleep(100 * time.Millisecond)
	}}
	reg := prometheus.NewRegistry()
	client := sdk.NewClient(srv.URL, sdk.WithMetricsRegisterer(reg))
	client.BindSession(session)

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.ListPermissions(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), session.refreshes.Load())
	assert.Equal(t, int32(0), session.ended.Load())

	expected := `
# HELP iamctl_sdk_token_refresh_total Access token refreshes triggered by 401 responses, by result.
# TYPE iamctl_sdk_token_refresh_total counter
iamctl_sdk_token_refresh_total{result="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "iamctl_sdk_token_refresh_total"))
}

func TestClient_CheckPermission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/authorization/check-permission", r.URL.Path)
		writeBody(w, http.StatusOK, `{"success":true,"data":{"hasPermission":true}}`)
	}))
	defer srv.Close()

	allowed, err := sdk.NewClient(srv.URL).CheckPermission(context.Background(), sdk.CheckPermissionInput{
		UserID: "u1", Resource: "users", Action: "read",
	})
	require.NoError(t, err)
	assert.True(t, allowed)
}
