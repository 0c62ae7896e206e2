package officeapi

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned before any network call when no
	// credential is present.
	ErrUnauthenticated = errors.New("officeapi: not signed in")

	// ErrUnauthorized is returned when the server rejects the credential
	// with 401. The session has already been torn down when callers see it.
	ErrUnauthorized = errors.New("officeapi: unauthorized (wrong or expired credentials)")
)

// APIError is a non-2xx response or a malformed/negative envelope.
type APIError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("officeapi: %s (status=%d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("officeapi: API error (%d)", e.StatusCode)
}
