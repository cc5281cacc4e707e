package errors

import "net/http"

// ErrorCode is the machine-readable code sent to clients.
type ErrorCode string

// Connector lifecycle.
const (
	ErrCodeInitFailed     ErrorCode = "INIT_FAILED"
	ErrCodeNoSession      ErrorCode = "NO_SESSION"
	ErrCodeNoAddress      ErrorCode = "NO_ADDRESS"
	ErrCodeListenerDetach ErrorCode = "LISTENER_DETACH_FAILED"
	ErrCodeLoginFailed    ErrorCode = "LOGIN_FAILED"
	// ErrCodeDeactivated: a deactivation overtook the operation.
	ErrCodeDeactivated ErrorCode = "DEACTIVATED"
)

// Backends and capacity.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// Requests and sessions.
const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

type codeInfo struct {
	status    int
	retryable bool
}

var catalog = map[ErrorCode]codeInfo{
	ErrCodeInitFailed:         {http.StatusBadGateway, true},
	ErrCodeNoSession:          {http.StatusConflict, false},
	ErrCodeNoAddress:          {http.StatusBadGateway, false},
	ErrCodeListenerDetach:     {http.StatusInternalServerError, false},
	ErrCodeLoginFailed:        {http.StatusUnauthorized, false},
	ErrCodeDeactivated:        {http.StatusConflict, false},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true},
	ErrCodeConnectionFailed:   {http.StatusServiceUnavailable, true},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true},
	ErrCodeExternalService:    {http.StatusBadGateway, true},
	ErrCodeNotFound:           {http.StatusNotFound, false},
	ErrCodeInvalidInput:       {http.StatusBadRequest, false},
	ErrCodeUnauthorized:       {http.StatusUnauthorized, false},
	ErrCodeInvalidToken:       {http.StatusUnauthorized, false},
	ErrCodeInternal:           {http.StatusInternalServerError, false},
}

// IsRetryableCode reports whether a client may repeat a request that
// failed with code.
func IsRetryableCode(code ErrorCode) bool { return catalog[code].retryable }

// HTTPStatus is the response status for code. Unknown codes map to 500.
func (c ErrorCode) HTTPStatus() int {
	if info, ok := catalog[c]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
