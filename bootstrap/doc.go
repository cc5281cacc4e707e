// Package bootstrap runs the connectord lifecycle.
//
// An App owns the typed configuration, the logger and the component
// registry. Run starts every component, runs the lifecycle hooks, prints a
// startup summary and blocks until SIGINT/SIGTERM, then shuts down in
// reverse order within the graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.Register(hubComponent, connectors, server.NewComponent(srv))
//	app.On(bootstrap.PhaseStop, flushTraces)
//	return app.Run(ctx)
package bootstrap
