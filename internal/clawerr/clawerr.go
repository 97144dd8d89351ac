// Package clawerr defines the error taxonomy shared by the CLI and the
// web layer. Callers classify failures by wrapping one of the sentinel
// errors; the web layer maps them to HTTP status codes with HTTPStatus.
package clawerr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound marks a referenced user, container, or secret as absent.
var ErrNotFound = errors.New("not found")

// ErrConflict marks a retryable state conflict, such as a container
// stuck in a restart loop or a daemon that is already running.
var ErrConflict = errors.New("state conflict")

// ErrConfig marks missing or invalid configuration. Configuration errors
// are fatal and reported once at load time.
var ErrConfig = errors.New("configuration error")

// NotFound wraps a formatted message with ErrNotFound.
func NotFound(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Conflict wraps a formatted message with ErrConflict.
func Conflict(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}

// Config wraps a formatted message with ErrConfig.
func Config(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConfig)...)
}

// HTTPStatus maps an error to the HTTP status code the web layer should
// return: 404 for not-found, 409 for state conflicts, 503 for missing
// configuration, 500 otherwise.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrConfig):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
