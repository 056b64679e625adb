package sdk

import (
	"context"
	"net/http"
	"os"
	"time"
)

// Login exchanges email/password for tokens via POST /auth/login.
// A 401 here means bad credentials and is never answered with a refresh.
func (c *Client) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	var missing []FieldError
	if input.Email == "" {
		missing = append(missing, FieldError{Field: "email", Message: "email is required"})
	}
	if input.Password == "" {
		missing = append(missing, FieldError{Field: "password", Message: "password is required"})
	}
	if len(missing) > 0 {
		return nil, &APIError{Kind: KindValidation, Message: "email and password are required", Fields: missing}
	}
	result, err := doJSON[LoginResult](ctx, c, http.MethodPost, "/auth/login", input, callOptions{skipRefresh: true})
	if err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, &APIError{Kind: KindAuthentication, Message: "login response carried no access token"}
	}
	return &result, nil
}

// Logout invalidates accessToken server-side via POST /auth/logout.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	body := struct {
		AccessToken string `json:"accessToken"`
	}{AccessToken: accessToken}
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", body, nil, callOptions{skipRefresh: true})
	return err
}

// RefreshToken exchanges a refresh token for a new access token via POST /auth/refresh.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	body := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}
	result, err := doJSON[RefreshResult](ctx, c, http.MethodPost, "/auth/refresh", body, callOptions{skipRefresh: true})
	if err != nil {
		return nil, err
	}
	if result.AccessToken == "" {
		return nil, &APIError{Kind: KindAuthentication, Message: "refresh response carried no access token"}
	}
	return &result, nil
}

// ValidateToken asks the gateway whether the current access token is valid.
func (c *Client) ValidateToken(ctx context.Context) (*ValidateResult, error) {
	result, err := doJSON[ValidateResult](ctx, c, http.MethodPost, "/auth/validate", nil, callOptions{skipRefresh: true})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// NewCredentials builds persisted credentials from a login result.
func NewCredentials(result *LoginResult, now time.Time) *Credentials {
	user := result.UserInfo
	return &Credentials{
		AccessToken:     result.AccessToken,
		RefreshToken:    result.RefreshToken,
		TokenType:       result.TokenType,
		ExpiresAt:       TokenExpiry(result.AccessToken, result.ExpiresIn, now),
		IsAuthenticated: true,
		User:            &user,
	}
}

type EnvCreds struct {
	Email    string
	Password string
}

// CheckEnvCreds reports whether IAMCTL_EMAIL and IAMCTL_PASSWORD are both set.
func CheckEnvCreds() (bool, EnvCreds) {
	creds := EnvCreds{
		Email:    os.Getenv("IAMCTL_EMAIL"),
		Password: os.Getenv("IAMCTL_PASSWORD"),
	}
	return creds.Email != "" && creds.Password != "", creds
}
