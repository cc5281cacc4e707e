package errors

import "time"

// ErrorResponse is the JSON envelope of a failed request.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is what clients see of an AppError.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse builds the envelope for e.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: ErrorBody{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}}
}

// RetryAfter is how long a client should wait before repeating a request
// that failed with e. Zero means no hint.
func (e *AppError) RetryAfter() time.Duration {
	if !e.Retryable {
		return 0
	}
	switch e.Code {
	case ErrCodeRateLimited, ErrCodeServiceUnavailable:
		return time.Second
	case ErrCodeInitFailed, ErrCodeExternalService, ErrCodeConnectionFailed:
		return 5 * time.Second
	}
	return 0
}
