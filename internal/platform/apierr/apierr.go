package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels for the error taxonomy shared by services and handlers.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrServiceUnavailable   = errors.New("service unavailable")
	ErrServiceNotConfigured = errors.New("service not configured")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(code string, format string, args ...any) *Error {
	return New(http.StatusNotFound, code, wrapf(ErrNotFound, format, args...))
}

func InvalidInput(code string, format string, args ...any) *Error {
	return New(http.StatusBadRequest, code, wrapf(ErrInvalidInput, format, args...))
}

func Unavailable(code string, err error) *Error {
	if err == nil {
		err = ErrServiceUnavailable
	} else if !errors.Is(err, ErrServiceUnavailable) {
		err = fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return New(http.StatusServiceUnavailable, code, err)
}

func Internal(code string, err error) *Error {
	return New(http.StatusInternalServerError, code, err)
}

func wrapf(base error, format string, args ...any) error {
	if format == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}

// From maps any error onto an *Error, keeping an existing one intact.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrInvalidInput):
		return New(http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, ErrUnauthorized):
		return New(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, ErrForbidden):
		return New(http.StatusForbidden, "forbidden", err)
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrServiceNotConfigured):
		return New(http.StatusServiceUnavailable, "service_unavailable", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
