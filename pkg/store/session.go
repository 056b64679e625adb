package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/terraconstructs/iamctl/pkg/notify"
	"github.com/terraconstructs/iamctl/pkg/sdk"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
)

// ErrSessionChanged is returned by a refresh whose session was replaced
// (logout or a new login) while the refresh was in flight.
var ErrSessionChanged = sdk.ErrSessionReplaced

// SessionState is the authenticated principal, its credentials and flags.
// IsAuthenticated is true iff Identity and AccessToken are both present.
type SessionState struct {
	Identity        *sdk.UserIdentity
	AccessToken     string
	RefreshToken    string
	TokenType       string
	ExpiresAt       time.Time
	IsAuthenticated bool
	IsLoading       bool
	Error           string

	// generation changes on every login and every reset.
	generation uint64
}

// Status derives the lifecycle state from the flags.
func (s SessionState) Status() Status {
	switch {
	case s.IsLoading:
		return StatusAuthenticating
	case s.IsAuthenticated:
		return StatusAuthenticated
	default:
		return StatusAnonymous
	}
}

// SessionAPI is the slice of the gateway the session needs.
type SessionAPI interface {
	Login(ctx context.Context, input sdk.LoginInput) (*sdk.LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (*sdk.RefreshResult, error)
	ValidateToken(ctx context.Context) (*sdk.ValidateResult, error)
}

// Session owns login, logout and token refresh. It persists identity,
// tokens and the authenticated flag; loading and error are never persisted.
type Session struct {
	api      SessionAPI
	creds    sdk.CredentialStore
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time

	// persistMu pairs every generation change with its credential write.
	persistMu sync.Mutex
	state     *observable[SessionState]
}

var _ sdk.SessionBinding = (*Session)(nil)

// NewSession creates the session store and rehydrates it from creds.
func NewSession(api SessionAPI, creds sdk.CredentialStore, opts ...Option) *Session {
	o := applyOptions(opts)
	s := &Session{
		api:      api,
		creds:    creds,
		notifier: o.notifier,
		logger:   o.logger.Named("session"),
		now:      o.now,
		state:    newObservable(SessionState{}),
	}
	s.Rehydrate()
	return s
}

// State returns a snapshot of the session.
func (s *Session) State() SessionState {
	return s.state.get()
}

// Subscribe registers fn for state changes and returns the unsubscribe func.
// fn must not call back into the session's mutating methods.
func (s *Session) Subscribe(fn func(SessionState)) func() {
	return s.state.subscribe(fn)
}

// Rehydrate restores the persisted subset verbatim, without contacting the server.
func (s *Session) Rehydrate() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	creds, err := s.creds.LoadCredentials()
	if err != nil {
		if !errors.Is(err, sdk.ErrNotLoggedIn) {
			s.logger.Warn("failed to load persisted credentials", zap.Error(err))
		}
		s.state.set(func(st *SessionState) {
			*st = SessionState{generation: st.generation + 1}
		})
		return
	}
	s.state.set(func(st *SessionState) {
		*st = stateFromCredentials(creds, st.generation+1)
	})
	s.logger.Debug("session rehydrated", zap.Bool("authenticated", s.state.get().IsAuthenticated))
}

// Login authenticates with email and password. On failure the previous
// credentials are left untouched and the error is returned to the caller.
func (s *Session) Login(ctx context.Context, input sdk.LoginInput) error {
	s.state.set(func(st *SessionState) {
		st.IsLoading = true
		st.Error = ""
	})

	result, err := s.api.Login(ctx, input)
	if err != nil {
		message := sdk.ErrorMessage(err, "Login failed")
		s.state.set(func(st *SessionState) {
			st.IsLoading = false
			st.Error = message
		})
		s.logger.Info("login failed", zap.String("email", input.Email), zap.Error(err))
		return err
	}

	creds := sdk.NewCredentials(result, s.now())
	s.persistMu.Lock()
	if err := s.creds.SaveCredentials(creds); err != nil {
		s.logger.Warn("failed to persist credentials", zap.Error(err))
	}
	s.state.set(func(st *SessionState) {
		*st = stateFromCredentials(creds, st.generation+1)
	})
	s.persistMu.Unlock()
	s.logger.Info("login succeeded", zap.String("user_id", result.UserInfo.ID))
	notify.Success(s.notifier, "session", fmt.Sprintf("Welcome, %s", result.UserInfo.DisplayName()))
	return nil
}

// Logout invalidates the token server-side on a best-effort basis and always
// clears local and persisted credentials.
func (s *Session) Logout(ctx context.Context) {
	if token := s.State().AccessToken; token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			s.logger.Warn("server logout failed, clearing local session anyway", zap.Error(err))
		}
	}
	s.reset("")
}

// RefreshToken exchanges the stored refresh token for a new access token.
// Without a stored refresh token it fails immediately. A refresh failure
// clears the session before the error is returned, unless the session was
// replaced in the meantime, in which case ErrSessionChanged is returned and
// the newer session is left alone.
func (s *Session) RefreshToken(ctx context.Context) error {
	current := s.State()
	if current.RefreshToken == "" {
		return sdk.ErrNoRefreshToken
	}

	result, err := s.api.RefreshToken(ctx, current.RefreshToken)
	if err != nil {
		if !s.resetIf(current.generation, sdk.ErrorMessage(err, "Session expired, please log in again")) {
			s.logger.Warn("ignoring refresh failure for a replaced session", zap.Error(err))
			return fmt.Errorf("refresh token: %w", ErrSessionChanged)
		}
		s.logger.Info("token refresh failed, session cleared", zap.Error(err))
		return fmt.Errorf("refresh token: %w", err)
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	var creds *sdk.Credentials
	applied := s.state.update(func(st *SessionState) bool {
		if st.generation != current.generation {
			return false
		}
		if result.UserInfo != nil {
			user := *result.UserInfo
			st.Identity = &user
		}
		st.AccessToken = result.AccessToken
		if result.RefreshToken != "" {
			st.RefreshToken = result.RefreshToken
		}
		if result.TokenType != "" {
			st.TokenType = result.TokenType
		}
		st.ExpiresAt = sdk.TokenExpiry(result.AccessToken, result.ExpiresIn, s.now())
		st.IsAuthenticated = st.Identity != nil && st.AccessToken != ""
		st.Error = ""
		creds = credentialsFromState(*st)
		return true
	})
	if !applied {
		s.logger.Warn("discarding refresh result for a replaced session")
		return ErrSessionChanged
	}
	if err := s.creds.SaveCredentials(creds); err != nil {
		s.logger.Warn("failed to persist refreshed credentials", zap.Error(err))
	}
	s.logger.Debug("access token refreshed")
	return nil
}

// Validate asks the gateway whether the current token is still valid. It
// does not change the session.
func (s *Session) Validate(ctx context.Context) (bool, error) {
	if s.State().AccessToken == "" {
		return false, sdk.ErrNotLoggedIn
	}
	result, err := s.api.ValidateToken(ctx)
	if err != nil {
		return false, err
	}
	return result.Valid, nil
}

// Token implements oauth2.TokenSource for the client adapter.
func (s *Session) Token() (*oauth2.Token, error) {
	st := s.State()
	if st.AccessToken == "" {
		return nil, sdk.ErrNoToken
	}
	return credentialsFromState(st).OAuth2Token(), nil
}

// RefreshAccessToken implements sdk.SessionBinding. When a newer login
// replaced the session during the refresh, its token is returned so the
// caller retries with the new credentials.
func (s *Session) RefreshAccessToken(ctx context.Context) (string, error) {
	if err := s.RefreshToken(ctx); err != nil {
		if errors.Is(err, ErrSessionChanged) {
			if st := s.State(); st.IsAuthenticated && st.AccessToken != "" {
				return st.AccessToken, nil
			}
		}
		return "", err
	}
	return s.State().AccessToken, nil
}

// EndSession implements sdk.SessionBinding: the client gave up on the
// current credentials.
func (s *Session) EndSession(ctx context.Context) {
	s.reset("Session expired, please log in again")
}

// reset clears persisted and in-memory credentials, leaving message as the error.
func (s *Session) reset(message string) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.clear(message)
}

// resetIf is reset for the session of the given generation only. It reports
// whether the session was cleared.
func (s *Session) resetIf(generation uint64, message string) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if s.state.get().generation != generation {
		return false
	}
	s.clear(message)
	return true
}

// clear requires persistMu.
func (s *Session) clear(message string) {
	if err := s.creds.DeleteCredentials(); err != nil {
		s.logger.Warn("failed to delete persisted credentials", zap.Error(err))
	}
	s.state.set(func(st *SessionState) {
		*st = SessionState{Error: message, generation: st.generation + 1}
	})
}

func stateFromCredentials(c *sdk.Credentials, generation uint64) SessionState {
	st := SessionState{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		ExpiresAt:    c.ExpiresAt,
		generation:   generation,
	}
	if c.User != nil {
		user := *c.User
		st.Identity = &user
	}
	st.IsAuthenticated = c.IsAuthenticated && st.Identity != nil && st.AccessToken != ""
	return st
}

func credentialsFromState(st SessionState) *sdk.Credentials {
	c := &sdk.Credentials{
		AccessToken:     st.AccessToken,
		RefreshToken:    st.RefreshToken,
		TokenType:       st.TokenType,
		ExpiresAt:       st.ExpiresAt,
		IsAuthenticated: st.IsAuthenticated,
	}
	if st.Identity != nil {
		user := *st.Identity
		c.User = &user
	}
	return c
}
