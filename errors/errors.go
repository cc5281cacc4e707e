package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
)

// AppError is the error every connector, provider and handler returns to
// the HTTP surface.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the wrapped error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into the error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

// WithDetail sets one detail.
func (e *AppError) WithDetail(key string, value any) *AppError {
	return e.WithDetails(map[string]any{key: value})
}

// New builds an error whose status and retryability come from code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: code.HTTPStatus(),
		Retryable:  IsRetryableCode(code),
	}
}

// detailed is New with a single detail, the common shape of the
// constructors below.
func detailed(code ErrorCode, key, value, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...)).WithDetail(key, value)
}

// InitFailed: the provider could not boot.
func InitFailed(provider string, cause error) *AppError {
	return detailed(ErrCodeInitFailed, "provider", provider, "The %s provider failed to initialize.", provider).WithCause(cause)
}

// NoSession: eager connection found nothing to restore.
func NoSession(connector string) *AppError {
	return detailed(ErrCodeNoSession, "connector", connector, "No existing %s connection.", connector)
}

// Deactivated: a deactivation overtook an activation in flight.
func Deactivated(connector string) *AppError {
	return detailed(ErrCodeDeactivated, "connector", connector, "%s was deactivated before it connected.", connector)
}

// NoAddress: the provider is connected but returned no account.
func NoAddress(connector string) *AppError {
	return detailed(ErrCodeNoAddress, "connector", connector, "No address from %s.", connector)
}

// ListenerDetach: removing a provider listener failed.
func ListenerDetach(event string, cause error) *AppError {
	return detailed(ErrCodeListenerDetach, "event", event, "Failed to remove %s listener.", event).WithCause(cause)
}

// LoginFailed: the provider login flow did not complete.
func LoginFailed(provider string, cause error) *AppError {
	return detailed(ErrCodeLoginFailed, "provider", provider, "Login with %s did not complete.", provider).WithCause(cause)
}

func ServiceUnavailable(service string) *AppError {
	return detailed(ErrCodeServiceUnavailable, "service", service, "The %s is temporarily unavailable. Please try again.", service)
}

func ConnectionFailed(service string) *AppError {
	return detailed(ErrCodeConnectionFailed, "service", service, "Unable to connect to %s.", service)
}

func Timeout(operation string) *AppError {
	return detailed(ErrCodeTimeout, "operation", operation, "The %s operation took too long.", operation)
}

func RateLimited(scope string) *AppError {
	return detailed(ErrCodeRateLimited, "scope", scope, "Too many requests. Please slow down.")
}

func ExternalServiceError(service string, cause error) *AppError {
	return detailed(ErrCodeExternalService, "service", service, "The %s service encountered an error.", service).WithCause(cause)
}

// NotFound: no resource (a connector, usually) with id.
func NotFound(resource, id string) *AppError {
	e := detailed(ErrCodeNotFound, "resource", resource, "The requested %s was not found.", resource)
	if id != "" {
		e.Details["id"] = id
	}
	return e
}

// InvalidInput: field failed a check. field may be empty.
func InvalidInput(field, reason string) *AppError {
	e := New(ErrCodeInvalidInput, "Invalid input: "+reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation: a request or config struct failed validation.
func Validation(message string) *AppError { return New(ErrCodeInvalidInput, message) }

// Unauthorized: the caller has no usable credentials.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "Authentication required."
	}
	return New(ErrCodeUnauthorized, reason)
}

// InvalidToken: the bearer or session token did not verify.
func InvalidToken(cause error) *AppError {
	return New(ErrCodeInvalidToken, "Invalid session token. Please log in again.").WithCause(cause)
}

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "An unexpected error occurred.").WithCause(cause)
}

// AsAppError finds the AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsAppError reports whether err's chain holds an AppError.
func IsAppError(err error) bool {
	_, ok := AsAppError(err)
	return ok
}

// HasCode reports whether err's chain holds an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// Normalize returns err as an AppError, wrapping unknown errors as
// INTERNAL_ERROR.
func Normalize(err error) *AppError {
	appErr, ok := AsAppError(err)
	if !ok {
		return Internal(err)
	}
	if appErr.HTTPStatus == 0 {
		appErr.HTTPStatus = appErr.Code.HTTPStatus()
	}
	return appErr
}
