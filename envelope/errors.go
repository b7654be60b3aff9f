package envelope

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports a malformed or incomplete request. It is raised
// before any adapter is called and maps to 400.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid request"
	}
	return strings.Join(e.Problems, "; ")
}

// Invalid returns a ValidationError with a single formatted problem.
func Invalid(format string, args ...any) error {
	return &ValidationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

// DependencyError wraps a failure returned by an external provider. Its text
// is the provider's message unchanged so callers see exactly what AWS said.
type DependencyError struct {
	Op  string // provider operation, e.g. "SendMessage"
	Err error
}

func (e *DependencyError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return e.Err.Error()
}

func (e *DependencyError) Unwrap() error { return e.Err }

// Dependency wraps err as a DependencyError unless it is nil.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Op: op, Err: err}
}

// AuthError means the caller presented no credential or a wrong one.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

// AccessDeniedError means the credential is valid but lacks the role the
// route requires.
type AccessDeniedError struct {
	Principal string
	Required  string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("principal %q lacks required role %s", e.Principal, e.Required)
}

// NotFoundError is used for unknown routes.
type NotFoundError struct {
	Method string
	Path   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no handler for %s %s", e.Method, e.Path)
}

// MethodNotAllowedError is used when the route exists for another method.
type MethodNotAllowedError struct {
	Method string
	Path   string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("method %s not allowed on %s", e.Method, e.Path)
}

// StatusCode selects the HTTP status for err. Anything that is not a known
// fault type is treated as an adapter failure.
func StatusCode(err error) int {
	var (
		validation *ValidationError
		auth       *AuthError
		denied     *AccessDeniedError
		notFound   *NotFoundError
		method     *MethodNotAllowedError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &auth):
		return http.StatusUnauthorized
	case errors.As(err, &denied):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &method):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
