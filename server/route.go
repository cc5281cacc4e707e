package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type routeKey struct{}

// routeHolder carries the matched gin route template back out to the
// net/http middleware that wraps the engine.
type routeHolder struct {
	path string
}

func trackRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), routeKey{}, &routeHolder{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recordRoute(c *gin.Context) {
	if h, ok := c.Request.Context().Value(routeKey{}).(*routeHolder); ok {
		h.path = c.FullPath()
	}
	c.Next()
}

func routeOf(r *http.Request) string {
	if h, ok := r.Context().Value(routeKey{}).(*routeHolder); ok {
		return h.path
	}
	return ""
}
