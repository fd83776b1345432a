package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrItemUnavailable   = fmt.Errorf("item is not available for exchange")
	ErrSelfExchange      = fmt.Errorf("cannot request an exchange for your own item")
	ErrDuplicateRequest  = fmt.Errorf("a pending request for this item already exists")
	ErrUnauthorized      = fmt.Errorf("actor is not allowed to perform this transition")
	ErrInvalidTransition = fmt.Errorf("request is no longer pending")
	ErrNotFound          = fmt.Errorf("not found")

	ErrAuthFailure = fmt.Errorf("authentication failed")
	ErrConnection  = fmt.Errorf("connection error")

	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrValidation         = fmt.Errorf("invalid registration data")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("could not generate token")
)

// HTTPStatus maps a command error to the status code surfaced to the
// presentation layer. Unknown errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrDuplicateRequest), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrItemUnavailable),
		errors.Is(err, ErrSelfExchange),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthFailure), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
