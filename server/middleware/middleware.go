// Package middleware holds the HTTP middleware used by connectord.
//
// Server-wide concerns (request ids, logging, metrics, CORS, body limits,
// panic recovery) are plain net/http Middleware applied around the root
// mux. Per-route concerns on the /api group (rate limiting, bearer token
// auth) are gin handlers.
package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/logger"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware with the first one outermost.
func Chain(ms ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for i := len(ms) - 1; i >= 0; i-- {
			h = ms[i](h)
		}
		return h
	}
}

// WriteError answers r with the error envelope for err, tagged with the
// request id. Retryable errors carry a Retry-After hint.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.Normalize(err)
	body := appErr.ToResponse()
	body.Error.RequestID = logger.RequestIDFromContext(r.Context())

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	if d := appErr.RetryAfter(); d > 0 {
		h.Set("Retry-After", strconv.Itoa(int(d/time.Second)))
	}
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(body)
}

// Abort stops the gin chain and writes err with WriteError.
func Abort(c *gin.Context, err error) {
	c.Abort()
	WriteError(c.Writer, c.Request, err)
}
