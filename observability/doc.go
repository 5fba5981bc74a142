// Package observability provides OpenTelemetry tracing and metrics for the
// svckit container.
//
// Instruments bundles the tracer and the counters the container records on
// resolution, asynchronous initialization and disposal. Without explicit
// providers it uses the global otel providers, which are no-ops until
// InitTracer or InitMeter installs an exporter.
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("billing"))
//	defer tp.Shutdown(ctx)
//	inst := observability.DefaultInstruments()
//	b := di.NewBuilder(di.WithInstruments(inst))
package observability
