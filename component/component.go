package component

import "context"

// HealthStatus is a component's self-reported condition.
type HealthStatus string

const (
	StatusHealthy HealthStatus = "healthy"
	// StatusDegraded still serves traffic, e.g. a connector registry with
	// one provider behind an open circuit.
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is one component's entry in /health and the startup summary.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a long-running part of connectord: the event hub, the
// connector registry, the HTTP server.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	// Stop must return once ctx is done even if cleanup is unfinished.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is a component's line in the startup summary.
type Description struct {
	// Name defaults to the component's Name.
	Name    string
	Type    string
	Details string
	Port    int
}

// Describable components describe themselves in the startup summary.
type Describable interface {
	Describe() Description
}

// Describe returns c's description, or one holding only its name.
func Describe(c Component) Description {
	d, ok := c.(Describable)
	if !ok {
		return Description{Name: c.Name()}
	}
	desc := d.Describe()
	if desc.Name == "" {
		desc.Name = c.Name()
	}
	return desc
}
