package cmdutil

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/iamctl/pkg/sdk"
)

func TestReadLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "unix newline", input: "s3cret\nrest", want: "s3cret"},
		{name: "windows newline", input: "s3cret\r\n", want: "s3cret"},
		{name: "no newline", input: "s3cret", want: "s3cret"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadLine(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateError(t *testing.T) {
	assert.NoError(t, StateError(""))
	assert.EqualError(t, StateError("User not found"), "User not found")
}

func TestOptionalString(t *testing.T) {
	assert.Nil(t, OptionalString(false, "ignored"))
	got := OptionalString(true, "")
	require.NotNil(t, got)
	assert.Empty(t, *got)
}

func TestDescribeError(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, DescribeError(plain))

	err := DescribeError(&sdk.APIError{
		Kind:    sdk.KindValidation,
		Status:  422,
		Message: "email: is required",
		Fields: []sdk.FieldError{
			{Field: "email", Message: "is required"},
			{Message: "password too short"},
		},
	})
	assert.EqualError(t, err, "validation failed:\n  email: is required\n  password too short")
}
