package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/authconnect/logger"
)

// Option configures NewApp. Options do not depend on the config type.
type Option func(*options)

type options struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
	summaryOut      io.Writer
	routes          RouteSource
}

// WithLogger replaces the logger otherwise built from the logging config.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGracefulTimeout bounds shutdown. Non-positive values are ignored.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}

// WithSummaryOutput redirects the startup summary; io.Discard silences it.
func WithSummaryOutput(w io.Writer) Option {
	return func(o *options) { o.summaryOut = w }
}

// WithRoutes lists src's API routes in the startup summary.
func WithRoutes(src RouteSource) Option {
	return func(o *options) { o.routes = src }
}
