package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/authconnect/errors"
)

// Operation outcomes on spans and metrics.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Operation is one traced connector call: activate, connect_eagerly or
// deactivate.
type Operation struct {
	Connector    string
	Name         string
	ActivationID string
	RequestID    string
	Started      time.Time

	ctx     context.Context
	span    trace.Span
	metrics *Metrics
}

type operationKey struct{}

// Begin opens the "connector.<name>" span for op and returns the context
// carrying both. metrics may be nil.
func Begin(ctx context.Context, op Operation, metrics *Metrics) (context.Context, *Operation) {
	o := &op
	o.Started = time.Now()
	o.metrics = metrics

	attrs := []attribute.KeyValue{
		attribute.String(AttrConnector, o.Connector),
		attribute.String(AttrOperationName, o.Name),
	}
	if o.ActivationID != "" {
		attrs = append(attrs, attribute.String(AttrActivationID, o.ActivationID))
	}
	if o.RequestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, o.RequestID))
	}
	ctx, o.span = StartSpan(ctx, "connector."+o.Name, trace.WithAttributes(attrs...))
	o.ctx = context.WithValue(ctx, operationKey{}, o)
	return o.ctx, o
}

// CurrentOperation returns the operation ctx was begun with, or nil.
func CurrentOperation(ctx context.Context) *Operation {
	o, _ := ctx.Value(operationKey{}).(*Operation)
	return o
}

// Elapsed is the time since Begin.
func (o *Operation) Elapsed() time.Duration { return time.Since(o.Started) }

// End closes the span with err's outcome and records the operation, plus
// the error code when err is an AppError.
func (o *Operation) End(err error) {
	elapsed := o.Elapsed()
	status := StatusOK
	appErr, isApp := errors.AsAppError(err)
	if err != nil {
		status = StatusError
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		o.span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
		if isApp {
			o.span.SetAttributes(attribute.String(AttrErrorCode, string(appErr.Code)))
		}
	}
	o.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, elapsed.Milliseconds()),
	)
	o.span.End()

	if o.metrics == nil {
		return
	}
	// The span is over; metrics only need the values in ctx.
	ctx := context.WithoutCancel(o.ctx)
	o.metrics.RecordActivation(ctx, o.Connector, o.Name, status, elapsed)
	if isApp {
		o.metrics.RecordError(ctx, string(appErr.Code), o.Connector)
	}
}
