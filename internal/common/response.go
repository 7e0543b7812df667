package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// FieldError describes a single rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteAppError renders err with its own status. Anything that is not an
// AppError becomes a generic internal error.
func WriteAppError(w http.ResponseWriter, err error) {
	appErr, ok := AsAppError(err)
	if !ok || appErr.HTTPStatus == 0 {
		appErr = Internal(err)
	}
	message := appErr.Message
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		message = InternalMessage
	}
	JSONError(w, appErr.HTTPStatus, appErr.Code, message, appErr.Details)
}
