package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instruments holds the tracer and metric instruments the container records
// into. A nil *Instruments records nothing.
type Instruments struct {
	tracer          trace.Tracer
	resolutions     metric.Int64Counter
	initializations metric.Int64Counter
	initDuration    metric.Float64Histogram
	disposals       metric.Int64Counter
}

// NewInstruments creates instruments on the given providers.
func NewInstruments(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	meter := mp.Meter(InstrumentationName)

	resolutions, err := meter.Int64Counter("di.resolutions",
		metric.WithDescription("Instances constructed by the container"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating di.resolutions counter: %w", err)
	}

	initializations, err := meter.Int64Counter("di.initializations",
		metric.WithDescription("Asynchronous initializations run by the container"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating di.initializations counter: %w", err)
	}

	initDuration, err := meter.Float64Histogram("di.initialization.duration",
		metric.WithDescription("Duration of asynchronous initializations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating di.initialization.duration histogram: %w", err)
	}

	disposals, err := meter.Int64Counter("di.disposals",
		metric.WithDescription("Instances disposed by the container"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating di.disposals counter: %w", err)
	}

	return &Instruments{
		tracer:          tp.Tracer(InstrumentationName),
		resolutions:     resolutions,
		initializations: initializations,
		initDuration:    initDuration,
		disposals:       disposals,
	}, nil
}

// DefaultInstruments creates instruments on the global otel providers. It
// returns nil, which records nothing, if the instruments cannot be created.
func DefaultInstruments() *Instruments {
	inst, err := NewInstruments(otel.GetTracerProvider(), otel.GetMeterProvider())
	if err != nil {
		return nil
	}
	return inst
}

// StartSpan starts a span on the svckit tracer.
func (i *Instruments) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if i == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return i.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrStatus, StatusError))
	} else {
		span.SetAttributes(attribute.String(AttrStatus, StatusOK))
	}
	span.End()
}

// RecordResolution counts one constructed instance.
func (i *Instruments) RecordResolution(ctx context.Context, kind, status string) {
	if i == nil {
		return
	}
	i.resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrKind, kind),
		attribute.String(AttrStatus, status),
	))
}

// RecordInitialization counts one asynchronous initialization and its duration.
func (i *Instruments) RecordInitialization(ctx context.Context, key, status string, duration time.Duration) {
	if i == nil {
		return
	}
	i.initializations.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrKey, key),
		attribute.String(AttrStatus, status),
	))
	i.initDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrKey, key),
	))
}

// RecordDisposal counts one disposed instance.
func (i *Instruments) RecordDisposal(ctx context.Context, status string) {
	if i == nil {
		return
	}
	i.disposals.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStatus, status),
	))
}
