package server

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kbukum/authconnect/logger"
)

// Operational routes registered by RegisterDefaultEndpoints.
var systemPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/alive":   true,
	"/info":    true,
	"/version": true,
	"/metrics": true,
}

var methodRank = map[string]int{"GET": 0, "POST": 1, "PUT": 2, "PATCH": 3, "DELETE": 4}

// Route is one registered gin route.
type Route struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Handler string `json:"handler"`
	System  bool   `json:"system,omitempty"`
}

// Routes lists the API routes by path, then the operational ones.
func (s *Server) Routes() []Route {
	routes := make([]Route, 0, len(s.engine.Routes()))
	for _, r := range s.engine.Routes() {
		routes = append(routes, Route{
			Method:  r.Method,
			Path:    r.Path,
			Handler: handlerName(r.Handler),
			System:  systemPaths[r.Path],
		})
	}
	slices.SortFunc(routes, func(a, b Route) int {
		if a.System != b.System {
			if a.System {
				return 1
			}
			return -1
		}
		return cmp.Or(strings.Compare(a.Path, b.Path), cmp.Compare(rank(a.Method), rank(b.Method)))
	})
	return routes
}

func rank(method string) int {
	if r, ok := methodRank[method]; ok {
		return r
	}
	return len(methodRank)
}

// LogRoutes writes the route table at debug level.
func (s *Server) LogRoutes() {
	for _, r := range s.Routes() {
		s.log.Debug("Route", logger.Fields("method", r.Method, "path", r.Path, "handler", r.Handler))
	}
}

// handlerName shortens gin's handler symbol for the route table:
// "…/registry.(*Registry).handleActivate-fm" is "Registry.handleActivate"
// and "…/endpoint.Health.func1" is "endpoint.Health".
func handlerName(symbol string) string {
	name := strings.TrimSuffix(symbol, "-fm")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)

	parts := strings.Split(name, ".")
	for len(parts) > 1 && strings.HasPrefix(parts[len(parts)-1], "func") {
		parts = parts[:len(parts)-1]
	}
	// A method keeps its receiver and drops the package.
	if len(parts) == 3 {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}
