package observability

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// HealthStatus is the state reported on /health.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
)

var severity = map[HealthStatus]int{
	HealthStatusUp:       0,
	HealthStatusDegraded: 1,
	HealthStatusDown:     2,
}

// Health is one entry of a health report, e.g. "connector:social".
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthChecker contributes entries to the daemon's health report.
type HealthChecker interface {
	CheckHealth(ctx context.Context) []Health
}

// ServiceHealth is the daemon's health report. Status is the worst status
// among its components.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// NewServiceHealth starts an empty report, which is up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Version: version, Status: HealthStatusUp}
}

// AddComponent appends h and lowers the overall status if h is worse.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)
	if severity[h.Status] > severity[sh.Status] {
		sh.Status = h.Status
	}
}

// Ready reports whether nothing is down.
func (sh *ServiceHealth) Ready() bool { return sh.Status != HealthStatusDown }

// Collect runs the checkers concurrently, since connector checks may call
// out to auth backends, and adds their entries in checker order.
func (sh *ServiceHealth) Collect(ctx context.Context, checkers ...HealthChecker) *ServiceHealth {
	results := make([][]Health, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = c.CheckHealth(ctx)
			return nil
		})
	}
	_ = g.Wait()

	for _, hs := range results {
		for _, h := range hs {
			sh.AddComponent(h)
		}
	}
	return sh
}
