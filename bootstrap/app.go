package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/authconnect/component"
	"github.com/kbukum/authconnect/config"
	"github.com/kbukum/authconnect/logger"
)

// DefaultGracefulTimeout bounds shutdown when no timeout is configured.
const DefaultGracefulTimeout = 15 * time.Second

// Config is what an App needs from the daemon's configuration. Structs
// embedding config.ServiceConfig get GetServiceConfig by promotion.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

// Phase names a point in the lifecycle where hooks run.
type Phase string

const (
	// PhaseStart runs after every component started.
	PhaseStart Phase = "start"
	// PhaseReady runs after the ready check, before the summary.
	PhaseReady Phase = "ready"
	// PhaseStop runs first on shutdown, while components still run.
	PhaseStop Phase = "stop"
)

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// App runs connectord: it owns the configuration, the logger and the
// components, and drives them from startup to graceful shutdown.
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger
	Summary *Summary

	components      *component.Registry
	hooks           map[Phase][]Hook
	gracefulTimeout time.Duration
}

// NewApp applies defaults to cfg, validates it and sets up logging.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	o := options{gracefulTimeout: DefaultGracefulTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	base := cfg.GetServiceConfig()
	if o.logger == nil {
		logger.Init(base.Logging)
		o.logger = logger.GetGlobalLogger()
	}
	summary := NewSummary(base.Name, base.Version)
	summary.routes = o.routes
	if o.summaryOut != nil {
		summary.out = o.summaryOut
	}

	return &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Logger:          o.logger,
		Summary:         summary,
		components:      component.NewRegistry(),
		hooks:           make(map[Phase][]Hook),
		gracefulTimeout: o.gracefulTimeout,
	}, nil
}

// Register adds components in start order; they stop in reverse.
func (a *App[C]) Register(cs ...component.Component) error {
	for _, c := range cs {
		if err := a.components.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Components returns the component registry.
func (a *App[C]) Components() *component.Registry { return a.components }

// On adds hooks for phase. Hooks of a phase run in the order added and the
// first failure stops the phase.
func (a *App[C]) On(phase Phase, hooks ...Hook) {
	a.hooks[phase] = append(a.hooks[phase], hooks...)
}

func (a *App[C]) run(ctx context.Context, phase Phase) error {
	for i, h := range a.hooks[phase] {
		if err := h(ctx); err != nil {
			return fmt.Errorf("%s hook %d: %w", phase, i, err)
		}
	}
	return nil
}

// ReadyCheck fails when a component reports unhealthy. Degraded does not
// fail it: a connector behind an open circuit still lets the others serve.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var bad []string
	for _, h := range a.components.Health(ctx) {
		if h.Status != component.StatusUnhealthy {
			continue
		}
		if h.Message != "" {
			bad = append(bad, fmt.Sprintf("%s(%s)", h.Name, h.Message))
		} else {
			bad = append(bad, h.Name)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("unhealthy components: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Run starts the daemon and blocks until SIGINT, SIGTERM or ctx ends, then
// shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	return a.RunTask(ctx, func(ctx context.Context) error {
		a.Logger.Info("Application ready, waiting for shutdown signal")
		<-ctx.Done()
		a.Logger.Info("Shutting down", logger.Fields("cause", context.Cause(ctx).Error()))
		return nil
	})
}

// RunTask runs task between startup and shutdown. A signal cancels the
// task's context. Shutdown runs even when task fails; task's error wins.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return stderrors.Join(err, a.Shutdown())
	}

	taskCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	taskErr := task(taskCtx)
	if stopErr := a.Shutdown(); taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.components.Start(ctx); err != nil {
		return err
	}
	if err := a.run(ctx, PhaseStart); err != nil {
		return err
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := a.run(ctx, PhaseReady); err != nil {
		return err
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.Summary.Display(ctx, a.components)
	return nil
}

// Shutdown runs the stop hooks, then stops the components, all within the
// graceful timeout. Use it when driving the lifecycle without Run.
func (a *App[C]) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	err := stderrors.Join(a.run(ctx, PhaseStop), a.components.Stop(ctx))
	if err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.ErrorFields("shutdown", err))
		return err
	}
	a.Logger.Info("Application shutdown complete")
	return nil
}
