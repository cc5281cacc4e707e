package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/authconnect/bootstrap"
	"github.com/kbukum/authconnect/observability"
	"github.com/kbukum/authconnect/registry"
	"github.com/kbukum/authconnect/server"
	"github.com/kbukum/authconnect/sse"
	"github.com/kbukum/authconnect/version"
)

const eventsPath = "/api/connectors/:name/events"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the connector daemon",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *registry.Config) error {
	if cfg.Version == "" {
		cfg.Version = version.Current().Short()
	}

	srvHolder := &routeSource{}
	app, err := bootstrap.NewApp(cfg,
		bootstrap.WithGracefulTimeout(cfg.ShutdownTimeout),
		bootstrap.WithRoutes(srvHolder),
	)
	if err != nil {
		return err
	}
	log := app.Logger

	tel, err := observability.Setup(ctx, cfg.Observability, observability.Service{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	app.On(bootstrap.PhaseStop, tel.Shutdown)
	metrics := tel.Metrics

	events := sse.NewComponent(eventsPath)
	connectors, err := registry.New(*cfg,
		registry.WithLogger(log.WithComponent("connectors")),
		registry.WithMetrics(metrics),
		registry.WithPublisher(events),
	)
	if err != nil {
		return err
	}
	log.Info("Connectors configured", map[string]interface{}{"names": connectors.Names()})

	srv := server.New(cfg.Server, log, server.WithMetrics(metrics))
	srv.ApplyDefaults(cfg.Name, connectors.Statuses, connectors)
	connectors.RegisterRoutes(srv.API(), events.Hub())
	srvHolder.srv = srv

	if err := app.Register(events, connectors, server.NewComponent(srv)); err != nil {
		return err
	}
	return app.Run(ctx)
}

// routeSource defers to the server once it exists.
type routeSource struct {
	srv *server.Server
}

func (r *routeSource) Routes() []server.Route {
	if r.srv == nil {
		return nil
	}
	return r.srv.Routes()
}
