package sdk

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind classifies failures returned by the IAM gateway.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindValidation     ErrorKind = "validation"
	KindForbidden      ErrorKind = "forbidden"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindServer         ErrorKind = "server"
	KindTransport      ErrorKind = "transport"
)

var (
	// ErrAuthentication matches login, refresh and terminal 401 failures.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation matches rejected input (400/422).
	ErrValidation = errors.New("validation failed")

	// ErrForbidden matches 403 responses.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrConflict matches 409 responses.
	ErrConflict = errors.New("conflict")

	// ErrServer matches 5xx responses and malformed envelopes.
	ErrServer = errors.New("server error")

	// ErrTransport matches timeouts and network failures.
	ErrTransport = errors.New("transport error")

	// ErrNoRefreshToken is returned when a refresh is attempted without a stored refresh token.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrNotLoggedIn is returned by credential stores that hold no credentials.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrNoToken may be returned by a token source to send a request unauthenticated.
	ErrNoToken = errors.New("no access token")

	// ErrSessionReplaced is returned by a SessionBinding whose session was
	// logged out or replaced while a refresh was in flight. The client gives
	// up on the request without ending the newer session.
	ErrSessionReplaced = errors.New("session changed during refresh")
)

var kindSentinels = map[ErrorKind]error{
	KindAuthentication: ErrAuthentication,
	KindValidation:     ErrValidation,
	KindForbidden:      ErrForbidden,
	KindNotFound:       ErrNotFound,
	KindConflict:       ErrConflict,
	KindServer:         ErrServer,
	KindTransport:      ErrTransport,
}

// FieldError is a single per-field validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is the error type returned for every failed gateway call.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Fields  []FieldError
	Err     error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, so errors.Is(err, sdk.ErrNotFound) works.
func (e *APIError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// FieldMessages returns field errors keyed by field name.
func (e *APIError) FieldMessages() map[string]string {
	if len(e.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = f.Message
	}
	return out
}

// KindForStatus maps an HTTP status onto the error taxonomy.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindServer
	}
}

// ErrorMessage extracts the user-facing message from err, falling back when
// err carries no server-provided text.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func joinFieldErrors(fields []FieldError) string {
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
