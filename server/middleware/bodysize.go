package middleware

import (
	"fmt"
	"net/http"

	"github.com/docker/go-units"

	"github.com/kbukum/authconnect/errors"
)

const defaultMaxBodySize = 1 << 20

// BodySizeLimit caps request bodies at maxSize ("64KB", "1MB", ...). A
// declared Content-Length over the cap is refused with 413 up front; other
// bodies fail while being read. An unparsable size falls back to 1MB.
func BodySizeLimit(maxSize string) Middleware {
	limit, err := units.RAMInBytes(maxSize)
	if err != nil || limit <= 0 {
		limit = defaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				tooLarge := errors.InvalidInput("body", fmt.Sprintf("request body exceeds %s", units.BytesSize(float64(limit))))
				tooLarge.HTTPStatus = http.StatusRequestEntityTooLarge
				WriteError(w, r, tooLarge.WithDetail("limit_bytes", limit))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
