package provider

import "context"

// Status is a backend's condition as seen by its handle.
type Status string

const (
	// StatusHealthy means the backend answers and a session is usable.
	StatusHealthy Status = "healthy"
	// StatusDegraded means the backend answers but something is missing,
	// e.g. no session yet or a reconnecting event stream.
	StatusDegraded Status = "degraded"
	// StatusUnavailable means the backend cannot be reached or its circuit
	// is open.
	StatusUnavailable Status = "unavailable"
)

func (s Status) String() string { return string(s) }

// HealthStatus is what a HealthChecker reports.
type HealthStatus struct {
	Status  Status
	Message string
	Details map[string]any
}

// Healthy, Degraded and Unavailable build a HealthStatus.
func Healthy(details map[string]any) HealthStatus {
	return HealthStatus{Status: StatusHealthy, Details: details}
}

func Degraded(msg string, details map[string]any) HealthStatus {
	return HealthStatus{Status: StatusDegraded, Message: msg, Details: details}
}

func Unavailable(msg string, details map[string]any) HealthStatus {
	return HealthStatus{Status: StatusUnavailable, Message: msg, Details: details}
}

// HealthChecker is implemented by handles that can probe their backend.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}
