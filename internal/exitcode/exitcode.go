// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"errors"
	"net/http"

	"tasktrack/internal/apierror"
	"tasktrack/internal/session"
)

// Exit codes.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, validation, unknown task).
	UserError = 1

	// AuthError indicates a missing or rejected session, or bad config.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)

// FromError maps a failed operation to an exit code.
func FromError(err error) int {
	if err == nil {
		return Success
	}
	if errors.Is(err, session.ErrNotSignedIn) {
		return AuthError
	}

	switch apierror.KindOf(err) {
	case apierror.Validation, apierror.NotFoundLocal:
		return UserError
	case apierror.HTTPStatus:
		switch apierror.StatusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return AuthError
		}
	}
	return BackendError
}
