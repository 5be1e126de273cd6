package clierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/habedi/hrdesk/auth"
)

// Type categorizes a CLI-facing error for consistent messaging & exit codes.
type Type string

const (
	Validation Type = "validation"
	Auth       Type = "auth"
	NotFound   Type = "not_found"
	Forbidden  Type = "forbidden"
	Network    Type = "network"
	Internal   Type = "internal"
)

// Error is a structured user-facing error.
type Error struct {
	Type    Type
	Message string
	Err     error // optional underlying error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// New constructs a new CLI Error.
func New(t Type, msg string, err error) *Error { return &Error{Type: t, Message: msg, Err: err} }

// ExitCode maps an error type to the process exit status.
func (t Type) ExitCode() int {
	switch t {
	case Validation:
		return 2
	case Auth:
		return 3
	case Forbidden:
		return 4
	case NotFound:
		return 5
	case Network:
		return 6
	default:
		return 1
	}
}

// ExitCode returns the exit status for any error. nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cliErr *Error
	if errors.As(err, &cliErr) {
		return cliErr.Type.ExitCode()
	}
	return Internal.ExitCode()
}

// statusCoder is implemented by HTTP errors of the API client.
type statusCoder interface {
	HTTPStatus() int
}

// FromError classifies err into a CLI Error. Errors that already are CLI errors pass through.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var cliErr *Error
	if errors.As(err, &cliErr) {
		return cliErr
	}

	switch {
	case errors.Is(err, auth.ErrSessionExpired):
		return New(Auth, "session expired, run `hrdesk login` to sign in again", err)
	case errors.Is(err, auth.ErrNoCredentials):
		return New(Auth, "not logged in, run `hrdesk login` first", err)
	case errors.Is(err, auth.ErrUnauthorized):
		return New(Auth, "the server rejected your credentials", err)
	case errors.Is(err, context.Canceled):
		return New(Internal, "operation cancelled", err)
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch code := sc.HTTPStatus(); {
		case code == http.StatusNotFound:
			return New(NotFound, "the requested resource does not exist", err)
		case code == http.StatusForbidden:
			return New(Forbidden, "you do not have permission to do that", err)
		case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
			return New(Validation, fmt.Sprintf("the server rejected the request: %v", err), err)
		case code >= 500:
			return New(Network, fmt.Sprintf("the HR service is unavailable (HTTP %d)", code), err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return New(Network, fmt.Sprintf("could not reach the HR service: %v", err), err)
	}
	return New(Internal, err.Error(), err)
}
