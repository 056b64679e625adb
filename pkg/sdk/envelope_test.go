package sdk

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantData   string
		wantFailed bool
		wantError  string
	}{
		{name: "data envelope", body: `{"success":true,"data":{"id":"1"}}`, wantData: `{"id":"1"}`},
		{name: "message only", body: `{"success":true,"message":"Logged out"}`},
		{name: "bare object", body: `{"status":"ok"}`, wantData: `{"status":"ok"}`},
		{name: "bare array", body: `[1,2]`, wantData: `[1,2]`},
		{name: "plain text", body: "OK", wantData: "OK"},
		{name: "string error", body: `{"success":false,"error":"boom"}`, wantFailed: true, wantError: "boom"},
		{name: "nested error", body: `{"success":false,"error":{"message":"nested"}}`, wantFailed: true, wantError: "nested"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := decodeEnvelope([]byte(tt.body))
			assert.Equal(t, tt.wantData, string(env.Data))
			assert.Equal(t, tt.wantFailed, env.failed())
			assert.Equal(t, tt.wantError, env.errorText())
		})
	}
}

func TestFieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		errors string
		want   []FieldError
	}{
		{name: "list", errors: `[{"field":"email","message":"required"}]`, want: []FieldError{{Field: "email", Message: "required"}}},
		{name: "map sorted", errors: `{"b":"two","a":"one"}`, want: []FieldError{{Field: "a", Message: "one"}, {Field: "b", Message: "two"}}},
		{name: "strings", errors: `["bad input"]`, want: []FieldError{{Message: "bad input"}}},
		{name: "null", errors: `null`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &envelope{Errors: json.RawMessage(tt.errors)}
			assert.Equal(t, tt.want, env.fieldErrors())
		})
	}
}

func TestKindForStatus(t *testing.T) {
	tests := map[int]ErrorKind{
		400: KindValidation,
		401: KindAuthentication,
		403: KindForbidden,
		404: KindNotFound,
		409: KindConflict,
		422: KindValidation,
		500: KindServer,
		502: KindServer,
	}
	for status, want := range tests {
		assert.Equal(t, want, KindForStatus(status), "status %d", status)
	}
}

func TestTokenExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(30 * time.Minute)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		expiresIn int64
		want      time.Time
	}{
		{name: "expiresIn wins", token: signed, expiresIn: 60, want: now.Add(time.Minute)},
		{name: "jwt exp claim", token: signed, want: exp},
		{name: "opaque token", token: "opaque", want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenExpiry(tt.token, tt.expiresIn, now)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestDecodeHealth(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantStatus  string
		wantHealthy bool
		wantDetail  string
	}{
		{name: "plain text", data: "OK", wantStatus: "OK", wantHealthy: true},
		{name: "json string", data: `"degraded"`, wantStatus: "degraded"},
		{name: "object", data: `{"status":"healthy","version":"1.2.0","db":"up"}`, wantStatus: "healthy", wantHealthy: true, wantDetail: "db"},
		{name: "empty", data: ``, wantHealthy: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := decodeHealth(json.RawMessage(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, tt.wantHealthy, report.Healthy())
			if tt.wantDetail != "" {
				assert.Contains(t, report.Details, tt.wantDetail)
			}
		})
	}
}
