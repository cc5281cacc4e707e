package middleware

import (
	"net/http"

	"github.com/felixge/httpsnoop"

	"github.com/kbukum/authconnect/observability"
)

// Metrics records request count, latency and in-flight gauge. The route is
// the gin route template when available, so /api/connectors/:name is one
// series rather than one per connector.
func Metrics(m *observability.Metrics, route func(*http.Request) string) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			m.RecordRequestStart(ctx)
			snoop := httpsnoop.CaptureMetrics(next, w, r)

			path := r.URL.Path
			if route != nil {
				if p := route(r); p != "" {
					path = p
				}
			}
			m.RecordRequestEnd(ctx, r.Method, path, snoop.Code, snoop.Duration)
		})
	}
}
