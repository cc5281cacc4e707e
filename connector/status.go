package connector

// Status is the connector's position in its lifecycle.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusInitializing  Status = "initializing"
	StatusIdle          Status = "idle"
	StatusActivating    Status = "activating"
	StatusActive        Status = "active"
)

// Connected reports whether s has an account bound.
func (s Status) Connected() bool { return s == StatusActive }
