// Package tracing wires OpenTelemetry for wizard sessions.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Common attribute keys.
	WorkflowIDKey   = "mumu.workflow.id"
	SessionIDKey    = "mumu.session.id"
	StepIDKey       = "mumu.step.id"
	StepIndexKey    = "mumu.step.index"
	TemplateIDKey   = "mumu.template.id"
	TemplateNameKey = "mumu.template.name"
	BackendKey      = "mumu.backend"
	OutputBytesKey  = "mumu.output.bytes"
	ProjectIDKey    = "mumu.project.id"
)

// Name is the instrumentation scope used by Tracer.
const Name = "github.com/DomeenoH/MuMuAINovel"

// Setup installs a batching OTLP/HTTP tracer provider when enabled. The
// exporter reads the standard OTEL_EXPORTER_OTLP_* environment. When
// disabled the global no-op provider stays in place. The returned func
// flushes and stops the provider.
func Setup(ctx context.Context, enabled bool, serviceName string) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp.Shutdown, nil
}

// Tracer returns the tracer of the global provider.
// nolint:ireturn
func Tracer() trace.Tracer {
	return otel.Tracer(Name)
}

// nolint:ireturn,spancheck
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}
