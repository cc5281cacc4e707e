package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/authconnect/logger"
	"github.com/kbukum/authconnect/observability"
	"github.com/kbukum/authconnect/server/endpoint"
	"github.com/kbukum/authconnect/server/middleware"
)

// Server is the connectord HTTP server: a Gin engine mounted on a ServeMux,
// served over HTTP/1.1 and h2c on one port.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	mux        *http.ServeMux
	config     Config
	metrics    *observability.Metrics
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
	api      *gin.RouterGroup
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics through m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a new Server. No middleware is applied until ApplyMiddleware.
func New(cfg Config, log *logger.Logger, opts ...Option) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	mux := http.NewServeMux()
	mux.Handle("/", engine)

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          cfg.IdleTimeout,
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           h2c.NewHandler(mux, h2s),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		engine: engine,
		mux:    mux,
		config: cfg,
		log:    log.WithComponent("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GinEngine returns the underlying Gin engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Handle mounts an http.Handler at pattern on the root ServeMux, next to Gin.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
	s.log.Debug("Handler mounted", logger.Fields("pattern", pattern))
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server stopped serving", logger.ErrorFields("serve", err))
		}
	}()

	s.log.Info("HTTP server listening", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop drains in-flight requests for up to ShutdownTimeout. Open event
// streams end when their request contexts are cancelled.
func (s *Server) Stop(ctx context.Context) error {
	if s.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("HTTP server shutdown incomplete", logger.ErrorFields("shutdown", err))
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

func (s *Server) listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// ApplyMiddleware wraps the root handler in the server-wide chain: recovery,
// request id, request logging, metrics, CORS and the body size limit.
func (s *Server) ApplyMiddleware() {
	s.engine.Use(recordRoute)
	chain := middleware.Chain(
		trackRoute,
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.RequestLogger(s.log),
		middleware.Metrics(s.metrics, routeOf),
		middleware.CORS(&s.config.CORS),
		middleware.BodySizeLimit(s.config.MaxBodySize),
	)
	s.httpServer.Handler = chain(s.httpServer.Handler)
}

// API returns the /api route group. Rate limiting and bearer auth are
// attached on first use when configured.
func (s *Server) API() *gin.RouterGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.api != nil {
		return s.api
	}
	s.api = s.engine.Group("/api")
	if s.config.RateLimit.Enabled() {
		s.api.Use(middleware.RateLimit(s.config.RateLimit))
	}
	if s.config.Auth.Enabled() {
		validate := middleware.HMACValidator([]byte(s.config.Auth.Secret), s.config.Auth.Issuer)
		s.api.Use(middleware.Auth(s.config.Auth, validate))
	}
	return s.api
}

// RegisterDefaultEndpoints registers the operational endpoints.
func (s *Server) RegisterDefaultEndpoints(serviceName string, connectors endpoint.Connectors, checkers ...observability.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checkers...))
	s.engine.GET("/ready", endpoint.Readiness(serviceName, checkers...))
	s.engine.GET("/alive", endpoint.Liveness(serviceName))
	s.engine.GET("/info", endpoint.Info(serviceName, connectors))
	s.engine.GET("/version", endpoint.Version())
	s.engine.GET("/metrics", endpoint.Metrics(connectors))
}

// ApplyDefaults applies the middleware chain and registers default endpoints.
func (s *Server) ApplyDefaults(serviceName string, connectors endpoint.Connectors, checkers ...observability.HealthChecker) {
	s.ApplyMiddleware()
	s.RegisterDefaultEndpoints(serviceName, connectors, checkers...)
}
