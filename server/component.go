package server

import (
	"context"

	"github.com/kbukum/authconnect/component"
)

// Component runs a Server in the daemon and logs its route table once the
// port is bound.
type Component struct {
	srv *Server
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(s *Server) *Component { return &Component{srv: s} }

func (c *Component) Name() string { return "http" }

func (c *Component) Start(ctx context.Context) error {
	if err := c.srv.Start(ctx); err != nil {
		return err
	}
	c.srv.LogRoutes()
	return nil
}

func (c *Component) Stop(ctx context.Context) error { return c.srv.Stop(ctx) }

// Health is unhealthy until the listener is bound.
func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.srv.listening() {
		h.Status = component.StatusUnhealthy
		h.Message = "not listening on " + c.srv.config.Addr()
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Connector API",
		Type:    "http",
		Details: c.srv.config.Addr() + " (HTTP/1.1, h2c)",
		Port:    c.srv.config.Port,
	}
}
