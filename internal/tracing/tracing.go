// Package tracing wires OpenTelemetry spans around the Apply Engine,
// Layout Engine, and Export stages (SPEC_FULL.md §10.5). Grounded on the
// teacher's internal/infrastructure/tracing/tracing.go: an OTLP/gRPC
// exporter feeding a batching TracerProvider, set as the global provider,
// with a thin wrapper type exposing StartSpan to callers. Unlike the
// teacher, archiplane defaults tracing to off (a noop TracerProvider)
// rather than always dialing an OTLP endpoint, since spec.md has no
// collector to assume is present; Init only builds the OTLP
// exporter when explicitly enabled.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	noop "go.opentelemetry.io/otel/trace/noop"
)

// Config controls how Init builds its provider.
type Config struct {
	ServiceName string
	Environment string
	Endpoint    string // OTLP/gRPC collector address, e.g. "localhost:4317"
	Enabled     bool
}

// Provider wraps an OpenTelemetry tracer.
type Provider struct {
	sdkProvider *sdktrace.TracerProvider // nil when tracing is disabled
	tracer      trace.Tracer
}

// Init builds a Provider per cfg. When cfg.Enabled is false it installs a
// noop tracer: every span StartSpan returns records nothing, at zero
// runtime cost, so instrumented call sites don't need an `if enabled`
// check of their own.
func Init(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Provider{tracer: tp.Tracer(cfg.ServiceName)}, nil
	}

	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Provider{sdkProvider: tp, tracer: tp.Tracer(cfg.ServiceName)}, nil
}

// Shutdown flushes and stops the underlying exporter. A no-op when
// tracing was never enabled.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdkProvider == nil {
		return nil
	}
	return p.sdkProvider.Shutdown(ctx)
}

// StartSpan starts a span named name under ctx.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndWithError records err on span (if non-nil) and ends it. Every
// component wrapper below follows the same `defer EndWithError(span,
// &err)` shape so an instrumented function's named error return always
// lands on its span without repeating the if-err boilerplate at each
// call site.
func EndWithError(span trace.Span, err *error) {
	if err != nil && *err != nil {
		span.RecordError(*err)
	}
	span.End()
}

// StartApplySpan instruments one Apply Engine chunk execution (C4).
func (p *Provider) StartApplySpan(ctx context.Context, operationID string, chunkIndex, totalChunks int) (context.Context, trace.Span) {
	return p.StartSpan(ctx, "apply.chunk",
		attribute.String("operation.id", operationID),
		attribute.Int("chunk.index", chunkIndex),
		attribute.Int("chunk.total", totalChunks),
	)
}

// StartLayoutSpan instruments one Layout Engine run (C7).
func (p *Provider) StartLayoutSpan(ctx context.Context, viewID string, algorithm string) (context.Context, trace.Span) {
	return p.StartSpan(ctx, "layout.run",
		attribute.String("view.id", viewID),
		attribute.String("layout.algorithm", algorithm),
	)
}

// StartExportSpan instruments one Export rasterization (C9).
func (p *Provider) StartExportSpan(ctx context.Context, viewID string, format string) (context.Context, trace.Span) {
	return p.StartSpan(ctx, "export.run",
		attribute.String("view.id", viewID),
		attribute.String("export.format", format),
	)
}
