package sdk

import (
	"bytes"
	"encoding/json"
	"sort"
)

// envelope is the gateway's response wrapper:
// {success, data?, message?} on success and {success:false, error|errors} on failure.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

// errorText returns the textual error carried by the envelope, if any.
func (e *envelope) errorText() string {
	if len(e.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	// Some services nest {"message": "..."} under error.
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Error, &nested); err == nil {
		return nested.Message
	}
	return ""
}

// fieldErrors decodes the errors member, which services emit as a list of
// {field,message}, a {field: message} object, or a list of strings.
func (e *envelope) fieldErrors() []FieldError {
	raw := bytes.TrimSpace(e.Errors)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var list []FieldError
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var byField map[string]string
	if err := json.Unmarshal(raw, &byField); err == nil {
		keys := make([]string, 0, len(byField))
		for k := range byField {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]FieldError, 0, len(keys))
		for _, k := range keys {
			out = append(out, FieldError{Field: k, Message: byField[k]})
		}
		return out
	}

	var messages []string
	if err := json.Unmarshal(raw, &messages); err == nil {
		out := make([]FieldError, 0, len(messages))
		for _, m := range messages {
			out = append(out, FieldError{Message: m})
		}
		return out
	}
	return nil
}

// failed reports whether the envelope explicitly signals failure.
func (e *envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

// decodeEnvelope parses body. Bodies that are not envelopes are returned as
// the data payload verbatim.
func decodeEnvelope(body []byte) *envelope {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &envelope{}
	}
	var env envelope
	if trimmed[0] != '{' || json.Unmarshal(trimmed, &env) != nil {
		return &envelope{Data: json.RawMessage(trimmed)}
	}
	if env.Success == nil && len(env.Data) == 0 && len(env.Error) == 0 && len(env.Errors) == 0 {
		return &envelope{Data: json.RawMessage(trimmed), Message: env.Message}
	}
	return &env
}

// apiErrorFromEnvelope builds the APIError for a failed response.
func apiErrorFromEnvelope(status int, env *envelope) *APIError {
	apiErr := &APIError{
		Kind:   KindForStatus(status),
		Status: status,
		Fields: env.fieldErrors(),
	}
	switch {
	case env.errorText() != "":
		apiErr.Message = env.errorText()
	case env.Message != "":
		apiErr.Message = env.Message
	default:
		apiErr.Message = joinFieldErrors(apiErr.Fields)
	}
	return apiErr
}
