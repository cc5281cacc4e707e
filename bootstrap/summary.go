package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/authconnect/component"
	"github.com/kbukum/authconnect/server"
)

// RouteSource lists HTTP routes for the summary. *server.Server implements it.
type RouteSource interface {
	Routes() []server.Route
}

// Summary prints the startup report: components, API routes and live health.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	out             io.Writer
	routes          RouteSource
}

// NewSummary creates a summary printing to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version, out: os.Stdout}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Display prints the summary for the components in reg.
func (s *Summary) Display(ctx context.Context, reg *component.Registry) {
	w := s.out
	version := s.version
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n\n", s.serviceName, version, s.startupDuration.Seconds())

	comps := reg.All()
	fmt.Fprintf(w, "📦 Components\n")
	if len(comps) == 0 {
		fmt.Fprintf(w, "   └── No components registered\n")
	}
	for i, c := range comps {
		d := component.Describe(c)
		details := d.Details
		if d.Port > 0 && !strings.Contains(details, fmt.Sprintf(":%d", d.Port)) {
			details = fmt.Sprintf("%s (:%d)", details, d.Port)
		}
		fmt.Fprintf(w, "   %s %s [%s] %s\n", branch(i, len(comps)), d.Name, d.Type, details)
	}

	if s.routes != nil {
		var api []server.Route
		for _, r := range s.routes.Routes() {
			if !r.System {
				api = append(api, r)
			}
		}
		if len(api) > 0 {
			fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(api))
			for i, r := range api {
				fmt.Fprintf(w, "   %s %-7s %s → %s\n", branch(i, len(api)), r.Method, r.Path, r.Handler)
			}
		}
	}

	health := reg.Health(ctx)
	if len(health) > 0 {
		fmt.Fprintf(w, "\n🏥 Health Check\n")
		healthy := 0
		for i, h := range health {
			msg := ""
			if h.Message != "" {
				msg = " — " + h.Message
			}
			if h.Status == component.StatusHealthy {
				healthy++
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n", branch(i, len(health)), healthIcon(h.Status), h.Name, h.Status, msg)
		}
		if healthy == len(health) {
			fmt.Fprintf(w, "\n✅ All components healthy (%d/%d)\n", healthy, len(health))
		} else {
			fmt.Fprintf(w, "\n⚠️  Some components have issues (%d/%d healthy)\n", healthy, len(health))
		}
	}
	fmt.Fprintln(w)
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
