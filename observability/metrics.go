package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments recorded by connectors and the HTTP layer.
// A nil *Metrics is not valid; callers that may run without metrics keep
// a nil pointer and skip recording.
type Metrics struct {
	requests         metric.Int64Counter
	requestSeconds   metric.Float64Histogram
	inflight         metric.Int64UpDownCounter
	operations       metric.Int64Counter
	operationSeconds metric.Float64Histogram
	events           metric.Int64Counter
	circuits         metric.Int64Counter
	errors           metric.Int64Counter
}

// instrumentSet creates instruments and remembers the first failure.
type instrumentSet struct {
	meter metric.Meter
	err   error
}

func (s *instrumentSet) counter(name, desc string) metric.Int64Counter {
	c, err := s.meter.Int64Counter(name, metric.WithDescription(desc))
	s.fail(name, err)
	return c
}

func (s *instrumentSet) seconds(name, desc string) metric.Float64Histogram {
	h, err := s.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	s.fail(name, err)
	return h
}

func (s *instrumentSet) gauge(name, desc string) metric.Int64UpDownCounter {
	g, err := s.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	s.fail(name, err)
	return g
}

func (s *instrumentSet) fail(name string, err error) {
	if err != nil && s.err == nil {
		s.err = fmt.Errorf("instrument %s: %w", name, err)
	}
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	s := &instrumentSet{meter: meter}
	m := &Metrics{
		requests:         s.counter("http.server.requests", "HTTP requests by method, route and status"),
		requestSeconds:   s.seconds("http.server.duration", "HTTP request latency"),
		inflight:         s.gauge("http.server.active_requests", "HTTP requests in flight"),
		operations:       s.counter("connector.operations", "Connector operations by connector, operation and status"),
		operationSeconds: s.seconds("connector.operation.duration", "Connector operation latency"),
		events:           s.counter("connector.events", "Provider events delivered to connectors"),
		circuits:         s.counter("connector.circuit.transitions", "Backend circuit breaker transitions by connector"),
		errors:           s.counter("connector.errors", "Errors by code and connector"),
	}
	if s.err != nil {
		return nil, s.err
	}
	return m, nil
}

// RecordRequestStart counts a request in flight.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.inflight.Add(ctx, 1)
}

// RecordRequestEnd closes a request opened with RecordRequestStart.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, route string, status int, d time.Duration) {
	m.inflight.Add(ctx, -1)
	attrs := []attribute.KeyValue{attribute.String("method", method), attribute.String("route", route)}
	m.requestSeconds.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
	m.requests.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.Int("status", status))...))
}

// RecordActivation records a finished activate, connect_eagerly or
// deactivate call.
func (m *Metrics) RecordActivation(ctx context.Context, connector, operation, status string, d time.Duration) {
	attrs := []attribute.KeyValue{attribute.String("connector", connector), attribute.String("operation", operation)}
	m.operationSeconds.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
	m.operations.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("status", status))...))
}

// RecordEvent records a provider event delivered to connector.
func (m *Metrics) RecordEvent(ctx context.Context, connector, event string) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("connector", connector),
		attribute.String("event", event),
	))
}

// RecordCircuit records connector's backend circuit moving to state.
func (m *Metrics) RecordCircuit(ctx context.Context, connector, state string) {
	m.circuits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("connector", connector),
		attribute.String("state", state),
	))
}

// RecordError records an error code raised for connector.
func (m *Metrics) RecordError(ctx context.Context, code, connector string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("connector", connector),
	))
}
