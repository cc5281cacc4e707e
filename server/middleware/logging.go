package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/felixge/httpsnoop"

	"github.com/kbukum/authconnect/logger"
)

var quietPaths = []string{"/health", "/alive", "/ready", "/metrics"}

const connectorsPrefix = "/api/connectors/"

// RequestLogger logs every request with method, path, status and duration.
// Requests to a connector carry its name. Probe paths are not logged.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(quietPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			m := httpsnoop.CaptureMetrics(next, w, r)
			l := log.WithContext(r.Context())
			if name := connectorOf(r.URL.Path); name != "" {
				l = l.WithConnector(name)
			}
			completed(l, m.Code, logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				"status", m.Code,
				"bytes", m.Written,
				"duration_ms", m.Duration.Milliseconds(),
			))
		})
	}
}

// connectorOf returns the connector named by an /api/connectors/{name}
// path, or "".
func connectorOf(path string) string {
	rest, ok := strings.CutPrefix(path, connectorsPrefix)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

// completed logs 5xx at error and 4xx at warn. Successful calls only show
// up at debug.
func completed(log *logger.Logger, status int, fields map[string]any) {
	emit := log.Debug
	switch {
	case status >= 500:
		emit = log.Error
	case status >= 400:
		emit = log.Warn
	}
	emit("request completed", fields)
}
