package sse

import (
	"context"
	"fmt"

	"github.com/kbukum/authconnect/component"
)

// Component runs the connector event Hub in the daemon.
type Component struct {
	hub     *Hub
	path    string
	stopped chan struct{}
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
	_ Publisher             = (*Component)(nil)
)

// NewComponent creates the component for the stream route path.
func NewComponent(path string) *Component {
	return &Component{hub: NewHub(), path: path}
}

func (c *Component) Hub() *Hub    { return c.hub }
func (c *Component) Name() string { return "events" }

// Start runs the hub loop.
func (c *Component) Start(context.Context) error {
	if c.stopped != nil {
		return fmt.Errorf("events: already started")
	}
	c.stopped = make(chan struct{})
	go func() {
		defer close(c.stopped)
		c.hub.Run()
	}()
	return nil
}

// Stop closes every stream and waits for the hub loop to exit.
func (c *Component) Stop(ctx context.Context) error {
	c.hub.Stop()
	if c.stopped == nil {
		return nil
	}
	select {
	case <-c.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health is degraded while subscribers are losing events.
func (c *Component) Health(context.Context) component.Health {
	h := component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d subscribers on %d connectors", c.hub.Len(), len(c.hub.CountByTopic())),
	}
	if n := c.hub.Dropped(); n > 0 {
		h.Status = component.StatusDegraded
		h.Message += fmt.Sprintf(", %d events dropped", n)
	}
	return h
}

// Describe returns the startup summary entry.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Connector events",
		Type:    "sse",
		Details: "GET " + c.path,
	}
}

// Publish forwards to the Hub.
func (c *Component) Publish(topic, eventType string, data []byte) {
	c.hub.Publish(topic, eventType, data)
}
