package registry

import (
	"encoding/json"
	"github.com/gin-gonic/gin"

	"github.com/kbukum/authconnect/connector"
	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/logger"
	"github.com/kbukum/authconnect/server"
	"github.com/kbukum/authconnect/sse"
	"github.com/kbukum/authconnect/validation"
)

// activateRequest is the optional body of POST /connectors/:name/activate.
type activateRequest struct {
	PreferredAuthType string         `json:"preferred_auth_type" validate:"omitempty,max=64"`
	Extra             map[string]any `json:"extra"`
}

// RegisterRoutes mounts the connector API on api. hub may be nil, in which
// case the events stream answers 503.
func (r *Registry) RegisterRoutes(api *gin.RouterGroup, hub *sse.Hub) {
	g := api.Group("/connectors")
	g.GET("", r.handleList)
	g.GET("/:name", r.handleGet)
	g.POST("/:name/activate", r.handleActivate)
	g.POST("/:name/eager", r.handleEager)
	g.POST("/:name/deactivate", r.handleDeactivate)
	g.GET("/:name/events", r.handleEvents(hub))
}

func (r *Registry) handleList(c *gin.Context) {
	server.RespondOK(c, r.Views())
}

func (r *Registry) handleGet(c *gin.Context) {
	v, err := r.View(c.Param("name"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, v)
}

func (r *Registry) handleActivate(c *gin.Context) {
	name := c.Param("name")
	if _, err := r.Connector(name); err != nil {
		server.RespondWithError(c, err)
		return
	}

	var req activateRequest
	if c.Request.ContentLength != 0 {
		if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
			server.RespondWithError(c, errors.InvalidInput("body", err.Error()))
			return
		}
	}
	if err := validation.Validate(req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	opts := connector.Options{PreferredAuthType: req.PreferredAuthType, Extra: req.Extra}
	if err := r.Activate(c.Request.Context(), name, opts); err != nil {
		server.RespondWithError(c, err)
		return
	}
	r.respondView(c, name)
}

// handleEager never fails on a missing session: the current state is
// returned either way.
func (r *Registry) handleEager(c *gin.Context) {
	name := c.Param("name")
	conn, err := r.Connector(name)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := conn.ConnectEagerly(c.Request.Context()); err != nil {
		r.log.WithContext(c.Request.Context()).Debug("Eager connection failed", logger.Fields(
			logger.FieldConnector, name,
			logger.FieldError, err.Error(),
		))
	}
	r.respondView(c, name)
}

func (r *Registry) handleDeactivate(c *gin.Context) {
	name := c.Param("name")
	conn, err := r.Connector(name)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	conn.Deactivate(c.Request.Context())
	r.respondView(c, name)
}

func (r *Registry) handleEvents(hub *sse.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		v, err := r.View(name)
		if err != nil {
			server.RespondWithError(c, err)
			return
		}
		if hub == nil {
			server.RespondWithError(c, errors.ServiceUnavailable("event stream"))
			return
		}
		snapshot, err := json.Marshal(v)
		if err != nil {
			server.RespondWithError(c, errors.Internal(err))
			return
		}
		sse.ServeSSE(hub, c.Writer, c.Request, sse.NewClientID(name),
			sse.WithMetadata("connector", name),
			sse.WithInitialEvent(sse.EventTypeState, snapshot),
		)
	}
}

func (r *Registry) respondView(c *gin.Context, name string) {
	v, err := r.View(name)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, v)
}
