package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/terraconstructs/iamctl/pkg/notify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds every request made with the default HTTP client.
const DefaultTimeout = 10 * time.Second

const (
	headerRequestID = "X-Request-ID"
	notifySource    = "http"
	refreshKey      = "refresh"
)

// SessionBinding is implemented by the owner of the credential lifecycle.
// Once bound, the client reads bearer tokens from it, asks it to refresh after
// a 401, and tells it to end the session when the refresh does not help.
type SessionBinding interface {
	oauth2.TokenSource
	RefreshAccessToken(ctx context.Context) (string, error)
	EndSession(ctx context.Context)
}

// AuthFailureHandler is called after an unrecoverable authentication failure,
// once credentials have been cleared. Interactive front-ends navigate to their
// login entry point here.
type AuthFailureHandler func(ctx context.Context, err error)

// Client is the HTTP adapter for the IAM API gateway. It attaches bearer
// credentials, performs the single refresh-and-retry on 401, and unwraps the
// gateway's response envelope.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokens        oauth2.TokenSource
	notifier      notify.Notifier
	onAuthFailure AuthFailureHandler
	logger        *zap.Logger
	userAgent     string
	metrics       *clientMetrics
	tracer        trace.Tracer

	mu      sync.RWMutex
	session SessionBinding

	refreshGroup singleflight.Group
}

// ClientOptions configures SDK client construction.
type ClientOptions struct {
	HTTPClient    *http.Client
	Timeout       time.Duration
	TokenSource   oauth2.TokenSource
	Notifier      notify.Notifier
	OnAuthFailure AuthFailureHandler
	Logger        *zap.Logger
	UserAgent     string
	Registerer    prometheus.Registerer
}

// ClientOption mutates ClientOptions.
type ClientOption func(*ClientOptions)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(opts *ClientOptions) {
		opts.HTTPClient = client
	}
}

// WithTimeout sets the transport timeout after which a request fails.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(opts *ClientOptions) {
		opts.Timeout = timeout
	}
}

// WithTokenSource supplies bearer tokens when no session is bound.
func WithTokenSource(source oauth2.TokenSource) ClientOption {
	return func(opts *ClientOptions) {
		opts.TokenSource = source
	}
}

// WithNotifier routes user-visible error messages to n.
func WithNotifier(n notify.Notifier) ClientOption {
	return func(opts *ClientOptions) {
		opts.Notifier = n
	}
}

// WithAuthFailureHandler registers the handler for terminal 401s.
func WithAuthFailureHandler(fn AuthFailureHandler) ClientOption {
	return func(opts *ClientOptions) {
		opts.OnAuthFailure = fn
	}
}

// WithLogger sets the logger; a no-op logger is used otherwise.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(opts *ClientOptions) {
		opts.Logger = logger
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(opts *ClientOptions) {
		opts.UserAgent = ua
	}
}

// WithMetricsRegisterer enables request and refresh counters.
func WithMetricsRegisterer(reg prometheus.Registerer) ClientOption {
	return func(opts *ClientOptions) {
		opts.Registerer = reg
	}
}

// NewClient creates a client for the gateway at baseURL (scheme, host and
// base path, e.g. http://localhost:8080/api).
func NewClient(baseURL string, optFns ...ClientOption) *Client {
	opts := ClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	httpClient := opts.HTTPClient
	switch {
	case httpClient == nil:
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	case opts.Timeout > 0:
		copied := *httpClient
		copied.Timeout = opts.Timeout
		httpClient = &copied
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "iamctl-sdk"
	}

	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    httpClient,
		tokens:        opts.TokenSource,
		notifier:      notifier,
		onAuthFailure: opts.OnAuthFailure,
		logger:        logger.Named("sdk"),
		userAgent:     userAgent,
		metrics:       newClientMetrics(opts.Registerer),
		tracer:        otel.Tracer("github.com/terraconstructs/iamctl/pkg/sdk"),
	}
}

// BaseURL returns the gateway base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BindSession makes s the token source and refresher for every request.
func (c *Client) BindSession(s SessionBinding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) boundSession() SessionBinding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// callOptions tweaks a single request.
type callOptions struct {
	// skipRefresh disables the 401 refresh-and-retry. Set for the auth
	// endpoints, whose 401 means bad credentials rather than an expired token.
	skipRefresh bool
}

// Do performs a request and returns the envelope's data payload. body is
// JSON-encoded when non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body any, headers http.Header) (json.RawMessage, error) {
	return c.do(ctx, method, path, body, headers, callOptions{})
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers http.Header, opts callOptions) (json.RawMessage, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	requestID := uuid.NewString()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
		attribute.String("iamctl.request_id", requestID),
	)

	resp, err := c.send(ctx, method, path, payload, headers, requestID, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if resp.status == http.StatusUnauthorized && !opts.skipRefresh {
		c.logger.Debug("received 401, refreshing access token",
			zap.String("method", method), zap.String("path", path), zap.String("request_id", requestID))

		token, refreshErr := c.refreshAccessToken(ctx)
		if refreshErr != nil {
			authErr := &APIError{
				Kind:    KindAuthentication,
				Status:  http.StatusUnauthorized,
				Message: "session expired, please log in again",
				Err:     refreshErr,
			}
			span.SetStatus(codes.Error, authErr.Error())
			if errors.Is(refreshErr, ErrSessionReplaced) {
				c.logger.Debug("session replaced during refresh, not retrying",
					zap.String("method", method), zap.String("path", path), zap.String("request_id", requestID))
				return nil, authErr
			}
			return nil, c.failAuthentication(ctx, authErr)
		}

		span.AddEvent("retry after token refresh")
		resp, err = c.send(ctx, method, path, payload, headers, requestID, &oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if resp.status == http.StatusUnauthorized {
			authErr := apiErrorFromEnvelope(resp.status, resp.env)
			if authErr.Message == "" {
				authErr.Message = "session expired, please log in again"
			}
			span.SetStatus(codes.Error, authErr.Error())
			return nil, c.failAuthentication(ctx, authErr)
		}
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.status))
	data, err := c.result(resp)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return data, err
}

type response struct {
	status int
	env    *envelope
}

// send performs one round-trip. When token is nil the bearer token comes from
// the bound session or the configured token source.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, headers http.Header, requestID string, token *oauth2.Token) (*response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(headerRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token == nil {
		token = c.currentToken()
	}
	if token != nil && token.AccessToken != "" {
		token.SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observeRequest(method, "error")
		c.logger.Debug("request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.observeRequest(method, "error")
		return nil, transportError(err)
	}

	c.metrics.observeRequest(method, strconv.Itoa(resp.StatusCode))
	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("request_id", requestID),
	)

	return &response{status: resp.StatusCode, env: decodeEnvelope(body)}, nil
}

// result folds a response into data or an APIError, notifying on textual errors.
func (c *Client) result(resp *response) (json.RawMessage, error) {
	if resp.status < 400 && !resp.env.failed() {
		return resp.env.Data, nil
	}

	apiErr := apiErrorFromEnvelope(resp.status, resp.env)
	if resp.status < 400 {
		// success:false on a 2xx status
		apiErr.Kind = KindServer
		if len(apiErr.Fields) > 0 {
			apiErr.Kind = KindValidation
		}
	}
	if apiErr.Message != "" {
		notify.Error(c.notifier, notifySource, apiErr.Message)
	} else {
		apiErr.Message = http.StatusText(resp.status)
	}
	return nil, apiErr
}

func (c *Client) currentToken() *oauth2.Token {
	var source oauth2.TokenSource = c.tokens
	if s := c.boundSession(); s != nil {
		source = s
	}
	if source == nil {
		return nil
	}
	token, err := source.Token()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			c.logger.Warn("token source failed, sending request unauthenticated", zap.Error(err))
		}
		return nil
	}
	return token
}

// refreshAccessToken coalesces concurrent refreshes into one call to the
// bound session.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	s := c.boundSession()
	if s == nil {
		c.metrics.observeRefresh("unavailable")
		return "", ErrNoRefreshToken
	}
	v, err, _ := c.refreshGroup.Do(refreshKey, func() (any, error) {
		// shared by every waiter, so it must not die with the first caller
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout())
		defer cancel()
		token, err := s.RefreshAccessToken(refreshCtx)
		if err != nil {
			c.metrics.observeRefresh("failure")
			return "", err
		}
		c.metrics.observeRefresh("success")
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) refreshTimeout() time.Duration {
	if c.httpClient.Timeout > 0 {
		return c.httpClient.Timeout
	}
	return DefaultTimeout
}

// failAuthentication ends the session and reports the terminal failure.
func (c *Client) failAuthentication(ctx context.Context, authErr *APIError) error {
	c.logger.Info("authentication failed, clearing session", zap.String("reason", authErr.Message))
	if s := c.boundSession(); s != nil {
		s.EndSession(ctx)
	}
	notify.Error(c.notifier, notifySource, authErr.Message)
	if c.onAuthFailure != nil {
		c.onAuthFailure(ctx, authErr)
	}
	return authErr
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return payload, nil
}

func transportError(err error) *APIError {
	message := "network error"
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		message = "request timed out"
	}
	return &APIError{Kind: KindTransport, Message: message, Err: err}
}

// doJSON performs a request and decodes the data payload into T.
func doJSON[T any](ctx context.Context, c *Client, method, path string, body any, opts callOptions) (T, error) {
	var out T
	data, err := c.do(ctx, method, path, body, nil, opts)
	if err != nil {
		return out, err
	}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, &APIError{Kind: KindServer, Message: "malformed response payload", Err: err}
	}
	return out, nil
}
