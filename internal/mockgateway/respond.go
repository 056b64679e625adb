package mockgateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/terraconstructs/iamctl/pkg/sdk"
)

type successEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorEnvelope struct {
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	Errors  []sdk.FieldError `json:"errors,omitempty"`
}

// apiError is a handler failure carrying its HTTP status.
type apiError struct {
	status int
	msg    string
	fields []sdk.FieldError
}

func (e *apiError) Error() string { return e.msg }

func errBadRequest(msg string) error   { return &apiError{status: http.StatusBadRequest, msg: msg} }
func errUnauthorized(msg string) error { return &apiError{status: http.StatusUnauthorized, msg: msg} }
func errForbidden(msg string) error    { return &apiError{status: http.StatusForbidden, msg: msg} }
func errNotFound(msg string) error     { return &apiError{status: http.StatusNotFound, msg: msg} }
func errConflict(msg string) error     { return &apiError{status: http.StatusConflict, msg: msg} }

func errFields(fields ...sdk.FieldError) error {
	return &apiError{status: http.StatusUnprocessableEntity, fields: fields}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, successEnvelope{Success: true, Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = &apiError{status: http.StatusInternalServerError, msg: "Internal server error"}
	}
	writeJSON(w, apiErr.status, errorEnvelope{Error: apiErr.msg, Errors: apiErr.fields})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest("Invalid request body")
	}
	return nil
}
