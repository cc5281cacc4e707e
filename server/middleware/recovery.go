package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/authconnect/errors"
	"github.com/kbukum/authconnect/logger"
)

// Recovery answers a panicking handler with INTERNAL_ERROR and logs the
// stack. http.ErrAbortHandler is re-raised for net/http to handle.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				cause := fmt.Errorf("panic: %v", rec)
				fields := logger.ErrorFields(r.Method+" "+r.URL.Path, cause)
				fields["stack"] = string(debug.Stack())
				if name := connectorOf(r.URL.Path); name != "" {
					fields[logger.FieldConnector] = name
				}
				log.WithContext(r.Context()).Error("Handler panicked", fields)
				WriteError(w, r, errors.Internal(cause))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
