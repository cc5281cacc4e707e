package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// instrumentation is the tracer and meter name for connector telemetry.
const instrumentation = "github.com/kbukum/authconnect/connector"

// Span names for connector operations.
const (
	SpanActivate       = "connector.activate"
	SpanConnectEagerly = "connector.connect_eagerly"
	SpanDeactivate     = "connector.deactivate"
	SpanInitialize     = "connector.initialize"
)

// Attribute keys on connector spans.
const (
	AttrConnector     = "connector.name"
	AttrOperationName = "operation.name"
	AttrActivationID  = "activation.id"
	AttrRequestID     = "request.id"
	AttrChainID       = "chain.id"
	AttrDurationMs    = "duration_ms"
	AttrStatus        = "status"
	AttrErrorCode     = "error.code"
	AttrErrorMessage  = "error.message"
)

// StartSpan starts a span on the connector tracer of the global provider.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentation).Start(ctx, name, opts...)
}

// SetChain records the chain a connector settled on on the span in ctx.
func SetChain(ctx context.Context, id uint64) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attribute.Int64(AttrChainID, int64(id)))
	}
}
