package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authconnect/component"
	"github.com/kbukum/authconnect/observability"
	"github.com/kbukum/authconnect/version"
)

// ComponentHealth adapts a component registry's Health to an
// observability.HealthChecker.
type ComponentHealth func(ctx context.Context) []component.Health

// CheckHealth maps component statuses onto up/down/degraded.
func (f ComponentHealth) CheckHealth(ctx context.Context) []observability.Health {
	in := f(ctx)
	out := make([]observability.Health, 0, len(in))
	for _, h := range in {
		status := observability.HealthStatusUp
		switch h.Status {
		case component.StatusUnhealthy:
			status = observability.HealthStatusDown
		case component.StatusDegraded:
			status = observability.HealthStatusDegraded
		}
		out = append(out, observability.Health{Name: h.Name, Status: status, Message: h.Message})
	}
	return out
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// collect runs every checker; ok is false once any of them is down.
// Connectors without a session only degrade the service.
func collect(c *gin.Context, serviceName string, checkers []observability.HealthChecker) (sh *observability.ServiceHealth, ok bool) {
	sh = observability.NewServiceHealth(serviceName, version.Current().Short()).Collect(c.Request.Context(), checkers...)
	return sh, sh.Ready()
}

// Health reports every component and connector check. 503 while any is down.
func Health(serviceName string, checkers ...observability.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh, ok := collect(c, serviceName, checkers)
		code := http.StatusOK
		if !ok {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     sh.Status,
			"service":    sh.Service,
			"version":    sh.Version,
			"timestamp":  now(),
			"components": sh.Components,
		})
	}
}

// Readiness is Health without the details, for load balancers.
func Readiness(serviceName string, checkers ...observability.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := collect(c, serviceName, checkers); !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "service": serviceName, "timestamp": now()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "service": serviceName, "timestamp": now()})
	}
}

// Liveness answers as long as the process serves HTTP.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "service": serviceName, "timestamp": now()})
	}
}
