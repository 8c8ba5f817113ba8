package api

import (
	"errors"
	"net/http"
)

// AppError is a client-visible error with a stable machine code.
// The mobile app branches on Code, Message is display material only.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

var (
	ErrInvalidRequest = &AppError{Status: http.StatusBadRequest, Code: "INVALID_REQUEST", Message: "invalid request"}
	ErrUnauthorized   = &AppError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: "unauthorized"}
	ErrNotFound       = &AppError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "not found"}
	ErrAPIError       = &AppError{Status: http.StatusInternalServerError, Code: "API_ERROR", Message: "assistant is temporarily unavailable"}
	ErrRateLimited    = &AppError{Status: http.StatusTooManyRequests, Code: "RATE_LIMITED", Message: "assistant is busy, please try again shortly"}
)

func NewInvalidRequestError(msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: "INVALID_REQUEST", Message: msg}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: msg}
}

// HandleError writes err as a JSON error response. Unknown error types are
// masked as API_ERROR so upstream internals never reach the client.
func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSON(w, appErr.Status, appErr)
		return
	}
	JSON(w, ErrAPIError.Status, ErrAPIError)
}
