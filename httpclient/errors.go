package httpclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"

	"github.com/kbukum/authconnect/errors"
)

// statusError maps a non-2xx answer from service onto the errors taxonomy.
// The status code is kept in the "status" detail.
func statusError(service string, code int) error {
	var e *errors.AppError
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		e = errors.Unauthorized(fmt.Sprintf("%s rejected the session", service))
	case code == http.StatusNotFound:
		e = errors.NotFound(service, "resource")
	case code == http.StatusTooManyRequests:
		e = errors.RateLimited(service)
	case code >= 500:
		e = errors.ExternalServiceError(service, fmt.Errorf("HTTP %d", code))
	default:
		e = errors.ExternalServiceError(service, fmt.Errorf("HTTP %d", code))
		e.Retryable = false
	}
	return e.WithDetail("status", code)
}

// transportError classifies a failed round trip. A caller's own
// cancellation is returned untouched.
func transportError(ctx context.Context, service string, err error) error {
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	var netErr net.Error
	if ctx.Err() != nil || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.Timeout(service).WithCause(err)
	}
	return errors.ConnectionFailed(service).WithCause(err)
}

// IsUnauthorized reports whether the backend refused the credentials or the
// session (401 or 403).
func IsUnauthorized(err error) bool {
	return errors.HasCode(err, errors.ErrCodeUnauthorized)
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a backend answer.
func StatusCode(err error) int {
	if appErr, ok := errors.AsAppError(err); ok {
		if code, ok := appErr.Details["status"].(int); ok {
			return code
		}
	}
	return 0
}
