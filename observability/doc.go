// Package observability provides OpenTelemetry tracing and metrics for the
// connector daemon.
//
// Setup installs the OTLP pipeline when enabled and always returns usable
// instruments:
//
//	tel, err := observability.Setup(ctx, cfg.Observability, observability.Service{
//	    Name: "connectord", Version: version.Current().Short(),
//	})
//	defer tel.Shutdown(ctx)
//	tel.Metrics.RecordCircuit(ctx, "social", "open")
//
// Connector operations run between Begin and Operation.End, which open the
// "connector.<op>" span and record the activation metric.
//
// Health:
//
//	health := observability.NewServiceHealth("connectord", v).Collect(ctx, registry)
//	health.Ready()
package observability
