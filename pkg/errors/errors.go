package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Repositories return these; services wrap them in an
// AppError when the client needs a specific code.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConflict       = errors.New("conflict")
	ErrUnprocessable  = errors.New("unprocessable")
	ErrRateLimited    = errors.New("rate limited")
	ErrInternal       = errors.New("internal error")
	ErrServiceUnavail = errors.New("service unavailable")
)

// AppError is a structured error carrying a stable code and the HTTP status
// the transport layer should answer with.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(sentinel error, status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: sentinel}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, http.StatusNotFound, "NOT_FOUND",
		fmt.Sprintf("%s with id %s not found", resource, id))
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newError(ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT", message)
}

// InvalidQuantity creates a 400 error for a quantity the cart cannot accept.
func InvalidQuantity(message string) *AppError {
	return newError(ErrInvalidInput, http.StatusBadRequest, "INVALID_QUANTITY", message)
}

// MissingSession creates a 401 error for requests without a session id.
func MissingSession() *AppError {
	return newError(ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "session id is required")
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return newError(ErrConflict, http.StatusConflict, "CONFLICT", message)
}

// Unprocessable creates a 422 error for a well-formed request that cannot be
// carried out in the current state, such as checking out an empty cart.
func Unprocessable(code, message string) *AppError {
	return newError(ErrUnprocessable, http.StatusUnprocessableEntity, code, message)
}

// RateLimited creates a 429 error.
func RateLimited() *AppError {
	return newError(ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
}

// Internal creates a 500 error. The cause is kept for logging and never
// shown to the client.
func Internal(err error) *AppError {
	return newError(err, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
}

// classes maps each sentinel to the response used when it reaches the
// transport layer without an AppError around it. Messages are generic
// except where the wrapped text is the useful part.
var classes = []struct {
	sentinel error
	status   int
	code     string
	message  string
}{
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND", "resource not found"},
	{ErrConflict, http.StatusConflict, "CONFLICT", "resource was modified concurrently, retry the request"},
	{ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT", ""},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"},
	{ErrUnprocessable, http.StatusUnprocessableEntity, "UNPROCESSABLE", ""},
	{ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"},
	{ErrServiceUnavail, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service unavailable"},
}

// Classify returns err as an AppError. An AppError anywhere in the chain is
// returned as is; a known sentinel gets its mapped status and code; anything
// else becomes Internal.
func Classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, c := range classes {
		if errors.Is(err, c.sentinel) {
			msg := c.message
			if msg == "" {
				msg = err.Error()
			}
			return newError(err, c.status, c.code, msg)
		}
	}
	return Internal(err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	return Classify(err).Status
}
