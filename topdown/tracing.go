package topdown

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ConfigureTracing wires the package's tracer (used by Dispatch and
// EngineEntry.Check) to a real exporter via the OpenTelemetry SDK.
// Without calling this, the spans tracer.Start creates are discarded: an
// otel.Tracer with no configured TracerProvider/exporter is a documented
// no-op. ConfigureTracing accepts any SpanExporter rather than building one
// itself — OTLP, stdout, or an in-memory test exporter are all equally
// valid, and this package has no business owning endpoint configuration
// for any of them.
//
// The returned TracerProvider's Shutdown must be called to flush pending
// spans before the process exits.
func ConfigureTracing(exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
	)
	otel.SetTracerProvider(tp)
	return tp
}

// ShutdownTracing flushes tp's pending spans and releases its exporter.
func ShutdownTracing(ctx context.Context, tp *sdktrace.TracerProvider) error {
	return tp.Shutdown(ctx)
}
